package ai

import (
	"context"
	"errors"
)

// TextGenerator generates text from a system prompt and a user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// UpstreamError carries an error message reported by the model API itself,
// as opposed to transport or decoding failures. Callers pass its message
// through to their own clients verbatim.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// IsUpstream reports whether err is an API-reported error payload.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
