// Package gateway implements the payment transaction lifecycle.
// This is the service/use-case layer: it drives Payments through the
// charge/capture/void/refund protocol against the processor and keeps the
// stored entities consistent with what the processor did.
package gateway

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/commercegate/heartland-payments/internal/domain"
)

// Service orchestrates payment operations. It owns no state of its own;
// Payments and PaymentMethods live behind the store ports and every state
// transition is saved before the operation reports success.
type Service struct {
	processor domain.ProcessorClient
	payments  domain.PaymentStore
	methods   domain.PaymentMethodStore

	// subscriptionsEnabled turns on card storage: single-use tokens are
	// upgraded to multi-use during charges, and new payment methods are
	// tokenized for reuse immediately.
	subscriptionsEnabled bool
}

// NewService creates a new payment service with the required dependencies.
func NewService(
	processor domain.ProcessorClient,
	payments domain.PaymentStore,
	methods domain.PaymentMethodStore,
	subscriptionsEnabled bool,
) *Service {
	return &Service{
		processor:            processor,
		payments:             payments,
		methods:              methods,
		subscriptionsEnabled: subscriptionsEnabled,
	}
}

// VoidOutcome distinguishes the two legal endings of VoidPayment.
type VoidOutcome string

const (
	// OutcomeVoided means the authorization was voided before settlement.
	OutcomeVoided VoidOutcome = "voided"

	// OutcomeRefundFallback means the batch had already settled, so the
	// payment was refunded instead.
	OutcomeRefundFallback VoidOutcome = "refund_fallback"
)

// VoidResult reports how a void ended. Refund is set only for the
// settled-batch fallback.
type VoidResult struct {
	Outcome VoidOutcome
	Refund  *RefundResult
}

// RefundResult reports the bookkeeping after a refund.
type RefundResult struct {
	RefundedAmount domain.Amount
	State          domain.PaymentState
}

// CreatePayment charges (capture=true) or authorizes (capture=false) a new
// Payment against its PaymentMethod:
//  1. Decode the method's stored token envelope.
//  2. Charge/authorize with the method's current postal code and expiry -
//     the cardholder may have edited those after the token was issued.
//  3. For a single-use token with card storage enabled, ask the processor
//     to mint a multi-use token as a side channel of the same call, and
//     rewrite the method if it does.
//  4. Record the processor transaction id on the Payment and advance its
//     state.
func (s *Service) CreatePayment(ctx context.Context, p *domain.Payment, capture bool) error {
	if p.State != domain.StateNew {
		return domain.NewPaymentError(domain.ErrPreconditionViolation,
			"create requires a new payment, state is "+string(p.State),
			"PRECONDITION_VIOLATION")
	}

	method, err := s.methods.GetPaymentMethod(ctx, p.PaymentMethodID)
	if err != nil {
		return domain.NewPaymentError(err,
			"payment method "+p.PaymentMethodID+" not found",
			"METHOD_NOT_FOUND")
	}

	envelope, err := method.Token()
	if err != nil {
		return domain.NewPaymentError(err,
			"payment method "+method.ID+" has an unusable remote id",
			"MALFORMED_TOKEN")
	}

	// Upgrade is only attempted for single-use tokens, and only when the
	// merchant stores cards. It rides on the charge call itself, never a
	// second round trip.
	requestMultiUse := envelope.Kind == domain.SingleUse && s.subscriptionsEnabled

	req := domain.ChargeRequest{
		Amount:               p.Amount,
		Token:                envelope,
		ExpMonth:             method.ExpMonth,
		ExpYear:              method.ExpYear,
		PostalCode:           method.PostalCode,
		RequestMultiUseToken: requestMultiUse,
	}

	var result *domain.ChargeResult
	if capture {
		result, err = s.processor.Charge(ctx, req)
	} else {
		result, err = s.processor.Authorize(ctx, req)
	}
	if err != nil {
		// Payment stays new; the operation is safely retryable.
		return &domain.PaymentError{Err: err, Message: "charge failed", Code: "GATEWAY_ERROR"}
	}

	if requestMultiUse {
		if result.MultiUseToken != "" {
			method.SetToken(domain.MultiUseToken(result.MultiUseToken))
			if err := s.methods.SavePaymentMethod(ctx, method); err != nil {
				// The processor minted a durable token we failed to record.
				return domain.NewPaymentError(domain.ErrPersistence,
					"failed to save upgraded payment method "+method.ID,
					"PERSISTENCE_ERROR")
			}
			log.Printf("Payment method %s upgraded to multi-use token", method.ID)
		} else {
			// The cardholder will be asked for card details again next time;
			// worth seeing in the logs.
			log.Printf("Processor declined multi-use token for payment method %s, keeping single-use", method.ID)
		}
	}

	p.RemoteID = result.TransactionID
	if capture {
		p.State = domain.StateCompleted
	} else {
		p.State = domain.StateAuthorization
	}
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment after transaction "+result.TransactionID,
			"PERSISTENCE_ERROR")
	}

	log.Printf("Created payment %s: transaction %s, state %s, amount %s",
		p.ID, p.RemoteID, p.State, p.Amount)
	return nil
}

// CapturePayment captures a prior authorization. A nil amount captures the
// full authorized amount; a partial capture replaces the payment amount.
func (s *Service) CapturePayment(ctx context.Context, p *domain.Payment, amount *domain.Amount) error {
	if p.State != domain.StateAuthorization {
		return domain.NewPaymentError(domain.ErrPreconditionViolation,
			"capture requires an authorization, state is "+string(p.State),
			"PRECONDITION_VIOLATION")
	}

	captureAmount := p.Amount
	if amount != nil {
		captureAmount = *amount
	}

	if err := s.processor.Capture(ctx, p.RemoteID, captureAmount); err != nil {
		return &domain.PaymentError{Err: err, Message: "capture failed", Code: "GATEWAY_ERROR"}
	}

	p.State = domain.StateCompleted
	p.Amount = captureAmount
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment after capture of "+p.RemoteID,
			"PERSISTENCE_ERROR")
	}

	log.Printf("Captured payment %s for %s", p.ID, captureAmount)
	return nil
}

// VoidPayment cancels an authorization. When the processor reports the
// batch already settled, a void is no longer possible and the payment is
// refunded for its full amount instead; the result says which happened.
func (s *Service) VoidPayment(ctx context.Context, p *domain.Payment) (*VoidResult, error) {
	if p.State != domain.StateAuthorization {
		return nil, domain.NewPaymentError(domain.ErrPreconditionViolation,
			"void requires an authorization, state is "+string(p.State),
			"PRECONDITION_VIOLATION")
	}

	if err := s.processor.Void(ctx, p.RemoteID); err != nil {
		if errors.Is(err, domain.ErrBatchSettled) {
			log.Printf("Void of payment %s failed, batch settled; refunding instead", p.ID)
			refund, rerr := s.refund(ctx, p, p.Amount)
			if rerr != nil {
				return nil, rerr
			}
			return &VoidResult{Outcome: OutcomeRefundFallback, Refund: refund}, nil
		}
		return nil, &domain.PaymentError{Err: err, Message: "void failed", Code: "GATEWAY_ERROR"}
	}

	p.State = domain.StateAuthorizationVoided
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return nil, domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment after void of "+p.RemoteID,
			"PERSISTENCE_ERROR")
	}

	log.Printf("Voided payment %s", p.ID)
	return &VoidResult{Outcome: OutcomeVoided}, nil
}

// RefundPayment refunds a completed payment. A nil amount refunds the full
// payment amount. Repeat partial refunds accumulate until the payment is
// fully refunded.
func (s *Service) RefundPayment(ctx context.Context, p *domain.Payment, amount *domain.Amount) (*RefundResult, error) {
	if p.State != domain.StateCompleted && p.State != domain.StatePartiallyRefunded {
		return nil, domain.NewPaymentError(domain.ErrPreconditionViolation,
			"refund requires a completed or partially refunded payment, state is "+string(p.State),
			"PRECONDITION_VIOLATION")
	}

	refundAmount := p.Amount
	if amount != nil {
		refundAmount = *amount
	}
	return s.refund(ctx, p, refundAmount)
}

// refund issues the remote refund and recomputes the bookkeeping. It is
// shared with the void fallback, which runs it from the authorization state
// after the processor has told us the funds already moved.
func (s *Service) refund(ctx context.Context, p *domain.Payment, amount domain.Amount) (*RefundResult, error) {
	newRefunded, err := p.RefundedAmount.Add(amount)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrValidation, err.Error(), "CURRENCY_MISMATCH")
	}
	if p.Amount.LessThan(newRefunded) {
		return nil, domain.NewPaymentError(domain.ErrRefundExceedsAmount,
			"refund of "+amount.String()+" exceeds remaining balance",
			"REFUND_EXCEEDS_AMOUNT")
	}

	if err := s.processor.Refund(ctx, p.RemoteID, amount); err != nil {
		return nil, &domain.PaymentError{Err: err, Message: "refund failed", Code: "GATEWAY_ERROR"}
	}

	p.RefundedAmount = newRefunded
	if newRefunded.LessThan(p.Amount) {
		p.State = domain.StatePartiallyRefunded
	} else {
		p.State = domain.StateRefunded
	}
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return nil, domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment after refund of "+p.RemoteID,
			"PERSISTENCE_ERROR")
	}

	log.Printf("Refunded %s of payment %s, state %s", amount, p.ID, p.State)
	return &RefundResult{RefundedAmount: p.RefundedAmount, State: p.State}, nil
}

// CardDetails is what the tokenization handshake hands back: a one-time
// token plus masked display metadata. Raw card data never appears here.
type CardDetails struct {
	TokenValue string
	CardType   string
	LastFour   string
	ExpMonth   string
	ExpYear    string
	PostalCode string
}

// CreatePaymentMethod records a tokenized card as a stored payment method.
// With card storage enabled the single-use token is exchanged for a
// multi-use token right away via a dedicated tokenize call; otherwise the
// method stays single-use and non-reusable.
func (s *Service) CreatePaymentMethod(ctx context.Context, details CardDetails) (*domain.PaymentMethod, error) {
	if details.TokenValue == "" {
		return nil, domain.NewPaymentError(domain.ErrValidation,
			"card details must contain a token value",
			"VALIDATION_ERROR")
	}

	expMonth := strings.TrimSpace(details.ExpMonth)
	expiresAt, err := domain.CardExpirationTime(expMonth, details.ExpYear)
	if err != nil {
		return nil, domain.NewPaymentError(err,
			"card expiration "+expMonth+"/"+details.ExpYear+" is not a valid month and year",
			"VALIDATION_ERROR")
	}
	method := &domain.PaymentMethod{
		CardType:   details.CardType,
		LastFour:   details.LastFour,
		ExpMonth:   expMonth,
		ExpYear:    details.ExpYear,
		PostalCode: details.PostalCode,
		ExpiresAt:  expiresAt,
	}
	method.SetToken(domain.SingleUseToken(details.TokenValue))

	if s.subscriptionsEnabled {
		multiUse, err := s.processor.Tokenize(ctx, domain.SingleUseToken(details.TokenValue), details.PostalCode)
		if err != nil {
			// Keep the method usable for this checkout even when the upgrade
			// fails; the decline is logged, not swallowed.
			log.Printf("Multi-use tokenize failed, keeping single-use token: %v", err)
		} else {
			method.SetToken(multiUse)
		}
	}

	if err := s.methods.SavePaymentMethod(ctx, method); err != nil {
		return nil, domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment method",
			"PERSISTENCE_ERROR")
	}

	log.Printf("Created payment method %s (%s ending %s, reusable=%t)",
		method.ID, method.CardType, method.LastFour, method.Reusable)
	return method, nil
}

// UpdatePaymentMethod updates the billing postal code and expiration on a
// stored method. The token itself does not carry these, so the next charge
// simply sends the new values.
func (s *Service) UpdatePaymentMethod(ctx context.Context, id, postalCode, expMonth, expYear string) (*domain.PaymentMethod, error) {
	method, err := s.methods.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, domain.NewPaymentError(err, "payment method "+id+" not found", "METHOD_NOT_FOUND")
	}

	if postalCode != "" {
		method.PostalCode = postalCode
	}
	if expMonth != "" && expYear != "" {
		month := strings.TrimSpace(expMonth)
		expiresAt, err := domain.CardExpirationTime(month, expYear)
		if err != nil {
			return nil, domain.NewPaymentError(err,
				"card expiration "+month+"/"+expYear+" is not a valid month and year",
				"VALIDATION_ERROR")
		}
		method.ExpMonth = month
		method.ExpYear = expYear
		method.ExpiresAt = expiresAt
	}

	if err := s.methods.SavePaymentMethod(ctx, method); err != nil {
		return nil, domain.NewPaymentError(domain.ErrPersistence,
			"failed to save payment method "+id,
			"PERSISTENCE_ERROR")
	}
	return method, nil
}

// DeletePaymentMethod removes a stored method. There is no remote record to
// delete; tokens expire on the processor side on their own.
func (s *Service) DeletePaymentMethod(ctx context.Context, id string) error {
	if err := s.methods.DeletePaymentMethod(ctx, id); err != nil {
		return domain.NewPaymentError(err, "payment method "+id+" not found", "METHOD_NOT_FOUND")
	}
	log.Printf("Deleted payment method %s", id)
	return nil
}
