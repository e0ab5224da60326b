package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KayTeo/mimir-extension/pkg/llm"
)

// EdgeProvider calls the deployment's llm-proxy edge function, which fronts
// the actual completion provider behind a stable endpoint.
type EdgeProvider struct {
	BaseURL      string // e.g. https://<project>.supabase.co
	AnonKey      string
	FunctionName string
	Client       *http.Client
}

var _ llm.Provider = &EdgeProvider{}

func NewEdgeProvider(baseURL, anonKey string) *EdgeProvider {
	return &EdgeProvider{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		AnonKey:      anonKey,
		FunctionName: "llm-proxy",
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type edgeRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

func (p *EdgeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	payloadBytes, err := json.Marshal(edgeRequest{Name: "Functions", Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/functions/v1/%s", p.BaseURL, p.FunctionName)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.AnonKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("edge function request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("edge function error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	// The function returns either a bare JSON string or raw text.
	var completion string
	if err := json.Unmarshal(bodyBytes, &completion); err != nil {
		completion = string(bodyBytes)
	}
	return completion, nil
}
