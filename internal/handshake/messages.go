package handshake

import (
	"encoding/json"
	"fmt"
)

// responseEnvelope covers both message shapes a frame can send back:
// a success payload with the token fields inline, or {"error": {"message"}}.
type responseEnvelope struct {
	TokenSuccess
	Error *TokenError `json:"error,omitempty"`
}

// DecodeResponse parses a raw frame message into exactly one of the two
// outcomes. Frame transports use it to route incoming messages without
// knowing the payload shapes.
func DecodeResponse(data []byte) (*TokenSuccess, *TokenError, error) {
	var envelope responseEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, fmt.Errorf("undecodable frame message: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error, nil
	}
	if envelope.TokenValue == "" {
		return nil, nil, fmt.Errorf("frame message carries neither a token nor an error")
	}
	success := envelope.TokenSuccess
	return &success, nil, nil
}

// Dispatch decodes a raw frame message and delivers it to the handshake.
// Undecodable messages are delivered as tokenization errors so the user is
// not left waiting on a response that already arrived broken.
func Dispatch(h *Handshake, data []byte) {
	success, failure, err := DecodeResponse(data)
	switch {
	case err != nil:
		h.ResolveError(TokenError{Message: err.Error()})
	case failure != nil:
		h.ResolveError(*failure)
	default:
		h.ResolveSuccess(*success)
	}
}
