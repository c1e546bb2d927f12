package domain

import "context"

// ChargeRequest carries everything a charge or authorize call needs. The
// postal code and expiration always come from the current PaymentMethod
// fields, not the token: the cardholder may have edited them after the
// token was issued.
type ChargeRequest struct {
	Amount     Amount
	Token      TokenEnvelope
	ExpMonth   string
	ExpYear    string
	PostalCode string

	// RequestMultiUseToken asks the processor to mint a durable token as a
	// side channel of this same call. Only meaningful for single-use tokens.
	RequestMultiUseToken bool
}

// ChargeResult is the processor's answer to a charge or authorize.
type ChargeResult struct {
	// TransactionID is the processor transaction identifier; it becomes the
	// Payment's remote id.
	TransactionID string

	// MultiUseToken is non-empty when the processor honored
	// RequestMultiUseToken.
	MultiUseToken string
}

// ProcessorClient is the remote payment processor capability. Implementations
// translate these calls into the processor's wire protocol; the domain only
// sees domain values and domain errors.
//
// Void returns an error wrapping ErrBatchSettled when the batch already
// settled; every other remote failure wraps ErrGatewayDeclined with the
// processor's message.
type ProcessorClient interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Authorize(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Capture(ctx context.Context, transactionID string, amount Amount) error
	Void(ctx context.Context, transactionID string) error
	Refund(ctx context.Context, transactionID string, amount Amount) error

	// Tokenize exchanges a single-use token for a multi-use token with no
	// monetary amount attached.
	Tokenize(ctx context.Context, token TokenEnvelope, postalCode string) (TokenEnvelope, error)
}

// PaymentStore persists Payments. The orchestrator saves after every state
// transition; a failed save after a successful remote call is the one true
// dual-write hazard and is surfaced as ErrPersistence.
type PaymentStore interface {
	SavePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// PaymentMethodStore persists PaymentMethods.
type PaymentMethodStore interface {
	SavePaymentMethod(ctx context.Context, m *PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error
}
