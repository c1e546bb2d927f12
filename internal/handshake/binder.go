package handshake

import (
	"fmt"
	"sync"
)

// FrameFactory builds the secure-frame controller for one form.
type FrameFactory func(cfg Config) (Frames, error)

// Binding is the handle returned by Attach. It stands in for the submit
// interception on one form: the host calls SubmitIntercepted from its
// submit path, and after Detach the handle turns into a no-op.
type Binding struct {
	formID string

	mu        sync.Mutex
	handshake *Handshake
}

// SubmitIntercepted forwards a native form submission into the handshake.
// Returns false when the submit was ignored (already tokenizing, or the
// binding was detached).
func (b *Binding) SubmitIntercepted() bool {
	b.mu.Lock()
	h := b.handshake
	b.mu.Unlock()
	if h == nil {
		return false
	}
	return h.HandleSubmit()
}

// Handshake exposes the bound handshake so the frame transport can deliver
// token responses. Nil after detach.
func (b *Binding) Handshake() *Handshake {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handshake
}

// Binder attaches the tokenization handshake to host forms, exactly once
// per form. Re-processing an already-bound form (a partial page re-render)
// returns the existing binding unchanged.
type Binder struct {
	newFrames FrameFactory

	mu       sync.Mutex
	bindings map[string]*Binding
}

// NewBinder creates a binder that builds frame controllers with newFrames.
func NewBinder(newFrames FrameFactory) *Binder {
	return &Binder{
		newFrames: newFrames,
		bindings:  make(map[string]*Binding),
	}
}

// Attach binds the handshake to the form identified by formID. Idempotent:
// a second attach for the same form is a no-op returning the original
// handle. Each binding owns its own frame controller; controllers are never
// shared across forms.
func (b *Binder) Attach(formID string, form HostForm, cfg Config) (*Binding, error) {
	if cfg.PublicKey == "" {
		return nil, fmt.Errorf("attach requires a public key")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.bindings[formID]; ok {
		return existing, nil
	}

	frames, err := b.newFrames(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating secure frames for form %s: %w", formID, err)
	}

	binding := &Binding{
		formID:    formID,
		handshake: New(cfg, frames, form),
	}
	b.bindings[formID] = binding
	return binding, nil
}

// Detach releases a binding: the frame controller is closed, the submit
// interception stops, and the form can be bound again later. Failures
// during teardown are swallowed.
func (b *Binder) Detach(binding *Binding) {
	if binding == nil {
		return
	}

	b.mu.Lock()
	if current, ok := b.bindings[binding.formID]; ok && current == binding {
		delete(b.bindings, binding.formID)
	}
	b.mu.Unlock()

	binding.mu.Lock()
	h := binding.handshake
	binding.handshake = nil
	binding.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

// Bound reports whether a form currently has a binding.
func (b *Binder) Bound(formID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bindings[formID]
	return ok
}
