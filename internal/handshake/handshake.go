// Package handshake implements the secure tokenization handshake between a
// host checkout form and the processor's isolated card-entry frames. The
// raw card number, expiration and CVV only ever exist inside the frames;
// the host side observes a one-time token plus masked metadata.
package handshake

import (
	"sync"
	"time"
)

// Secure-frame field names. The card-number frame is the control point: a
// tokenize command addressed to it with the accumulate flag gathers the
// other two fields' values before executing.
const (
	FieldCardNumber     = "cardNumber"
	FieldCardExpiration = "cardExpiration"
	FieldCardCvv        = "cardCvv"
)

// ActionTokenize is the only command the handshake sends.
const ActionTokenize = "tokenize"

// DefaultTimeout bounds the wait for a tokenize response. The wire protocol
// itself defines no timeout; without this a lost response would leave the
// form unsubmittable forever.
const DefaultTimeout = 30 * time.Second

// Hidden field names populated on the host form when tokenization succeeds.
const (
	HiddenTokenValue  = "token_value"
	HiddenCardType    = "card_type"
	HiddenLastFour    = "last_four"
	HiddenExpMonth    = "exp_month"
	HiddenExpYear     = "exp_year"
	HiddenTokenExpire = "token_expire"
)

// Command is the message posted to a secure frame.
type Command struct {
	Action         string `json:"action"`
	AccumulateData bool   `json:"accumulateData"`
	Message        string `json:"message"`
}

// FrameTargets names the host-page elements each secure frame renders into.
type FrameTargets struct {
	CardNumber     string
	CardExpiration string
	CardCvv        string
}

// Config is supplied when the handshake is attached to a form.
type Config struct {
	PublicKey string
	Fields    FrameTargets

	// Style is CSS injected into the frames so they match the host page.
	// Opaque to the protocol.
	Style map[string]map[string]string

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Frames is the secure-frame controller. One instance is exclusively owned
// by the one form it was created for and must not be shared across forms.
type Frames interface {
	// Post sends a command to the named frame.
	Post(cmd Command, target string) error

	// Close disposes the frames. Idempotence is not guaranteed; callers
	// treat Close failures as best-effort cleanup.
	Close() error
}

// TokenSuccess is the success payload delivered by the card-number frame.
type TokenSuccess struct {
	TokenValue  string `json:"token_value"`
	CardType    string `json:"card_type"`
	LastFour    string `json:"last_four"`
	ExpMonth    string `json:"exp_month"`
	ExpYear     string `json:"exp_year"`
	TokenExpire string `json:"token_expire"`
}

// TokenError is the error payload. Message is human-readable and shown to
// the cardholder as-is.
type TokenError struct {
	Message string `json:"message"`
}

// HostForm is the checkout form the handshake is bound to. The handshake
// intercepts its native submission, and re-submits it programmatically once
// the hidden fields carry the token.
type HostForm interface {
	SetHiddenField(name, value string)
	Submit() error
	ShowError(message string)
}

type outcome struct {
	success *TokenSuccess
	failure *TokenError
}

// Handshake drives one tokenize exchange at a time for one form. A second
// submit while an exchange is outstanding is ignored, so one card entry
// can't produce two token requests.
type Handshake struct {
	publicKey string
	frames    Frames
	form      HostForm
	timeout   time.Duration

	mu      sync.Mutex
	pending chan outcome
	done    chan struct{}
	closed  bool
}

// New wires a handshake to its frames and host form.
func New(cfg Config, frames Frames, form HostForm) *Handshake {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handshake{
		publicKey: cfg.PublicKey,
		frames:    frames,
		form:      form,
		timeout:   timeout,
		done:      make(chan struct{}),
	}
}

// HandleSubmit intercepts a native form submission. It suppresses the
// submission and posts a single accumulate-tokenize command to the
// card-number frame. Returns false when the submit was ignored because an
// exchange is already outstanding or the handshake is closed.
func (h *Handshake) HandleSubmit() bool {
	h.mu.Lock()
	if h.closed || h.pending != nil {
		h.mu.Unlock()
		return false
	}
	ch := make(chan outcome, 1)
	h.pending = ch
	h.mu.Unlock()

	cmd := Command{
		Action:         ActionTokenize,
		AccumulateData: true,
		Message:        h.publicKey,
	}
	if err := h.frames.Post(cmd, FieldCardNumber); err != nil {
		h.clearPending(ch)
		h.form.ShowError("There was an error: " + err.Error())
		return true
	}

	go h.await(ch)
	return true
}

// ResolveSuccess delivers the success payload from the frames. Exactly the
// first resolution of an exchange counts; late or duplicate deliveries are
// dropped.
func (h *Handshake) ResolveSuccess(resp TokenSuccess) {
	h.resolve(outcome{success: &resp})
}

// ResolveError delivers the error payload from the frames.
func (h *Handshake) ResolveError(resp TokenError) {
	h.resolve(outcome{failure: &resp})
}

func (h *Handshake) resolve(o outcome) {
	h.mu.Lock()
	ch := h.pending
	h.pending = nil
	h.mu.Unlock()
	if ch == nil {
		return
	}
	ch <- o
}

// await is the single suspension point: one resolution, the timeout, or
// teardown.
func (h *Handshake) await(ch chan outcome) {
	select {
	case o := <-ch:
		if o.failure != nil {
			// Leave the form un-submitted with its fields intact so the
			// cardholder can correct the entry.
			h.form.ShowError("There was an error: " + o.failure.Message)
			return
		}
		h.form.SetHiddenField(HiddenTokenValue, o.success.TokenValue)
		h.form.SetHiddenField(HiddenCardType, o.success.CardType)
		h.form.SetHiddenField(HiddenLastFour, o.success.LastFour)
		h.form.SetHiddenField(HiddenExpMonth, o.success.ExpMonth)
		h.form.SetHiddenField(HiddenExpYear, o.success.ExpYear)
		h.form.SetHiddenField(HiddenTokenExpire, o.success.TokenExpire)
		if err := h.form.Submit(); err != nil {
			h.form.ShowError("There was an error: " + err.Error())
		}
	case <-time.After(h.timeout):
		h.clearPending(ch)
		h.form.ShowError("The payment service did not respond. Please try again.")
	case <-h.done:
		// Form torn down before resolution; nothing to submit.
	}
}

// clearPending resets the outstanding exchange if ch is still it.
func (h *Handshake) clearPending(ch chan outcome) {
	h.mu.Lock()
	if h.pending == ch {
		h.pending = nil
	}
	h.mu.Unlock()
}

// Close cancels any outstanding exchange and releases the frames. Close is
// best-effort: a controller that is already disposed is not an error.
func (h *Handshake) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.pending = nil
	close(h.done)
	h.mu.Unlock()

	// Swallowed: teardown is cleanup, not a correctness path.
	_ = h.frames.Close()
}
