package capture

import (
	"strings"

	"github.com/KayTeo/mimir-extension/internal/errs"
)

const (
	questionDelimiter = "###QUESTION###"
	answerDelimiter   = "###ANSWER###"
)

// ParseQA extracts the question and answer segments from a generator
// response. The expected shape is a question segment immediately followed by
// an answer segment running to end-of-text. Both segments are trimmed.
func ParseQA(raw string) (string, string, error) {
	qi := strings.Index(raw, questionDelimiter)
	if qi < 0 {
		return "", "", &errs.GenerationError{Message: "response has no question delimiter"}
	}

	rest := raw[qi+len(questionDelimiter):]
	ai := strings.Index(rest, answerDelimiter)
	if ai < 0 {
		return "", "", &errs.GenerationError{Message: "response has no answer delimiter"}
	}

	question := strings.TrimSpace(rest[:ai])
	answer := strings.TrimSpace(rest[ai+len(answerDelimiter):])
	return question, answer, nil
}
