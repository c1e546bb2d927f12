package domain

import "fmt"

// TokenKind distinguishes single-use from multi-use processor tokens.
type TokenKind string

const (
	// SingleUse tokens are valid for exactly one subsequent operation.
	SingleUse TokenKind = "single_use"

	// MultiUse tokens are durable and can be charged repeatedly.
	MultiUse TokenKind = "multi_use"
)

// Wire prefixes for stored remote identifiers. The prefix is a
// persistence-edge concern only; everywhere else the kind travels as a
// TokenEnvelope.
const (
	singleUsePrefix = "sut"
	multiUsePrefix  = "mut"
)

// TokenEnvelope pairs an opaque processor token with its kind. The stored
// form of a PaymentMethod remote id is always the 3-character kind prefix
// concatenated with the token value.
type TokenEnvelope struct {
	Kind  TokenKind
	Value string
}

// SingleUseToken wraps value as a single-use envelope.
func SingleUseToken(value string) TokenEnvelope {
	return TokenEnvelope{Kind: SingleUse, Value: value}
}

// MultiUseToken wraps value as a multi-use envelope.
func MultiUseToken(value string) TokenEnvelope {
	return TokenEnvelope{Kind: MultiUse, Value: value}
}

// Encode serializes the envelope to its stored form: "sut"+token or
// "mut"+token.
func (e TokenEnvelope) Encode() string {
	switch e.Kind {
	case MultiUse:
		return multiUsePrefix + e.Value
	default:
		return singleUsePrefix + e.Value
	}
}

// Reusable reports whether the envelope may be kept for future charges.
func (e TokenEnvelope) Reusable() bool {
	return e.Kind == MultiUse
}

// DecodeToken parses a stored remote identifier back into an envelope.
// An identifier without a recognized 3-character prefix is a data error:
// it means something other than Encode wrote the field.
func DecodeToken(remoteID string) (TokenEnvelope, error) {
	if len(remoteID) < 3 {
		return TokenEnvelope{}, fmt.Errorf("%w: remote id %q too short for a token prefix", ErrMalformedToken, remoteID)
	}
	prefix, value := remoteID[:3], remoteID[3:]
	switch prefix {
	case singleUsePrefix:
		return SingleUseToken(value), nil
	case multiUsePrefix:
		return MultiUseToken(value), nil
	default:
		return TokenEnvelope{}, fmt.Errorf("%w: unrecognized token prefix %q", ErrMalformedToken, prefix)
	}
}
