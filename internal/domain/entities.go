package domain

import (
	"fmt"
	"time"
)

// PaymentState is the lifecycle state of a Payment. Transitions happen only
// along the edges the orchestrator drives; anything else is a caller bug.
type PaymentState string

const (
	StateNew                 PaymentState = "new"
	StateAuthorization       PaymentState = "authorization"
	StateCompleted           PaymentState = "completed"
	StateAuthorizationVoided PaymentState = "authorization_voided"
	StatePartiallyRefunded   PaymentState = "partially_refunded"
	StateRefunded            PaymentState = "refunded"
)

// Payment is a single transaction against a PaymentMethod.
//
// RemoteID here is the processor transaction identifier, never a token;
// the token lives on the PaymentMethod.
type Payment struct {
	ID              string       `json:"id"`
	PaymentMethodID string       `json:"payment_method_id"`
	Amount          Amount       `json:"amount"`
	State           PaymentState `json:"state"`
	RemoteID        string       `json:"remote_id"`
	RefundedAmount  Amount       `json:"refunded_amount"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewPayment creates a Payment in the new state with a zero refunded amount
// in the payment's currency.
func NewPayment(paymentMethodID string, amount Amount) *Payment {
	return &Payment{
		PaymentMethodID: paymentMethodID,
		Amount:          amount,
		State:           StateNew,
		RefundedAmount:  ZeroAmount(amount.CurrencyCode),
		CreatedAt:       time.Now(),
	}
}

// PaymentMethod is a stored card reference. It never holds the PAN or CVV;
// RemoteID is the encoded token envelope (see TokenEnvelope.Encode) and the
// card fields are display metadata returned by the tokenization handshake.
type PaymentMethod struct {
	ID         string    `json:"id"`
	RemoteID   string    `json:"remote_id"`
	Reusable   bool      `json:"reusable"`
	CardType   string    `json:"card_type"`
	LastFour   string    `json:"last_four"`
	ExpMonth   string    `json:"exp_month"`
	ExpYear    string    `json:"exp_year"`
	PostalCode string    `json:"postal_code"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Token decodes the stored remote id into its envelope.
func (m *PaymentMethod) Token() (TokenEnvelope, error) {
	return DecodeToken(m.RemoteID)
}

// SetToken stores the envelope as the remote id and syncs the reusable
// flag. A method never goes back from multi-use to single-use; callers
// enforce that by only upgrading.
func (m *PaymentMethod) SetToken(e TokenEnvelope) {
	m.RemoteID = e.Encode()
	m.Reusable = e.Reusable()
}

// CardExpirationTime computes the instant the card expires: the end of the
// last day of the expiration month. An unparseable month or year is a
// validation error, never a silent zero time.
func CardExpirationTime(expMonth, expYear string) (time.Time, error) {
	t, err := time.Parse("1 2006", expMonth+" "+expYear)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid card expiration %q/%q", ErrValidation, expMonth, expYear)
	}
	// First instant of the following month is the expiry boundary.
	return t.AddDate(0, 1, 0), nil
}
