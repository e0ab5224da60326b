package factory

import (
	"fmt"

	"github.com/KayTeo/mimir-extension/pkg/llm"
	"github.com/KayTeo/mimir-extension/pkg/llm/edge"
	"github.com/KayTeo/mimir-extension/pkg/llm/huggingface"
	"github.com/KayTeo/mimir-extension/pkg/llm/ollama"
)

func NewProvider(providerType, modelName, ollamaBaseURL, edgeBaseURL, edgeAnonKey, hfAPIKey string) (llm.Provider, error) {
	switch providerType {
	case "edge":
		if edgeBaseURL == "" {
			return nil, fmt.Errorf("edge provider requires a base URL")
		}
		return edge.NewEdgeProvider(edgeBaseURL, edgeAnonKey), nil
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(hfAPIKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", providerType)
	}
}
