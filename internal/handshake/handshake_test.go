package handshake

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type postedCmd struct {
	cmd    Command
	target string
}

type fakeFrames struct {
	mu      sync.Mutex
	posted  []postedCmd
	postErr error
	closes  int
}

func (f *fakeFrames) Post(cmd Command, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, postedCmd{cmd: cmd, target: target})
	return nil
}

func (f *fakeFrames) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeFrames) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posted)
}

type fakeForm struct {
	mu      sync.Mutex
	fields  map[string]string
	submits int
	errs    []string

	submitted chan struct{}
	errored   chan struct{}
}

func newFakeForm() *fakeForm {
	return &fakeForm{
		fields:    make(map[string]string),
		submitted: make(chan struct{}, 4),
		errored:   make(chan struct{}, 4),
	}
}

func (f *fakeForm) SetHiddenField(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[name] = value
}

func (f *fakeForm) Submit() error {
	f.mu.Lock()
	f.submits++
	f.mu.Unlock()
	f.submitted <- struct{}{}
	return nil
}

func (f *fakeForm) ShowError(message string) {
	f.mu.Lock()
	f.errs = append(f.errs, message)
	f.mu.Unlock()
	f.errored <- struct{}{}
}

func (f *fakeForm) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func waitFor(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestHandshake(frames *fakeFrames, form *fakeForm) *Handshake {
	return New(Config{PublicKey: "pkapi_cert_abc"}, frames, form)
}

func TestHandleSubmit_PostsOneAccumulateTokenizeCommand(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	if !h.HandleSubmit() {
		t.Fatal("first submit should start an exchange")
	}

	frames.mu.Lock()
	defer frames.mu.Unlock()
	if len(frames.posted) != 1 {
		t.Fatalf("expected one posted command, got %d", len(frames.posted))
	}
	p := frames.posted[0]
	if p.target != FieldCardNumber {
		t.Errorf("command must be addressed to the card-number frame, got %q", p.target)
	}
	if p.cmd.Action != ActionTokenize || !p.cmd.AccumulateData || p.cmd.Message != "pkapi_cert_abc" {
		t.Errorf("unexpected command: %+v", p.cmd)
	}
}

func TestSuccess_PopulatesAllHiddenFieldsAndSubmitsOnce(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	h.HandleSubmit()
	h.ResolveSuccess(TokenSuccess{
		TokenValue:  "tok1",
		CardType:    "visa",
		LastFour:    "1111",
		ExpMonth:    "12",
		ExpYear:     "2030",
		TokenExpire: "2030-12-31",
	})
	waitFor(t, form.submitted, "form submission")

	form.mu.Lock()
	want := map[string]string{
		HiddenTokenValue:  "tok1",
		HiddenCardType:    "visa",
		HiddenLastFour:    "1111",
		HiddenExpMonth:    "12",
		HiddenExpYear:     "2030",
		HiddenTokenExpire: "2030-12-31",
	}
	for name, value := range want {
		if form.fields[name] != value {
			t.Errorf("hidden field %s = %q, want %q", name, form.fields[name], value)
		}
	}
	form.mu.Unlock()

	if n := form.submitCount(); n != 1 {
		t.Errorf("expected exactly one submit, got %d", n)
	}
}

func TestError_LeavesFormUnsubmitted(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	h.HandleSubmit()
	h.ResolveError(TokenError{Message: "invalid card number"})
	waitFor(t, form.errored, "error message")

	if n := form.submitCount(); n != 0 {
		t.Errorf("form must not submit on a tokenization error, got %d submits", n)
	}
	form.mu.Lock()
	defer form.mu.Unlock()
	if len(form.fields) != 0 {
		t.Errorf("no hidden fields may be populated on error, got %v", form.fields)
	}
	if len(form.errs) != 1 || form.errs[0] != "There was an error: invalid card number" {
		t.Errorf("error should carry the payload message verbatim, got %v", form.errs)
	}
}

func TestDuplicateSubmit_IgnoredWhileExchangeOutstanding(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	if !h.HandleSubmit() {
		t.Fatal("first submit should start an exchange")
	}
	if h.HandleSubmit() {
		t.Error("second submit must be ignored while tokenize is outstanding")
	}
	if n := frames.postCount(); n != 1 {
		t.Errorf("one card entry must produce one token request, got %d", n)
	}

	// After resolution a new submit is allowed again.
	h.ResolveSuccess(TokenSuccess{TokenValue: "tok1"})
	waitFor(t, form.submitted, "form submission")
	if !h.HandleSubmit() {
		t.Error("submit should work again after the exchange resolved")
	}
}

func TestResolution_IsSingleShot(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	h.HandleSubmit()
	h.ResolveSuccess(TokenSuccess{TokenValue: "tok1"})
	// A late second resolution of either flavor must be dropped.
	h.ResolveError(TokenError{Message: "too late"})
	h.ResolveSuccess(TokenSuccess{TokenValue: "tok2"})

	waitFor(t, form.submitted, "form submission")
	if n := form.submitCount(); n != 1 {
		t.Errorf("expected exactly one submit, got %d", n)
	}

	form.mu.Lock()
	defer form.mu.Unlock()
	if form.fields[HiddenTokenValue] != "tok1" {
		t.Errorf("first resolution must win, got token %q", form.fields[HiddenTokenValue])
	}
	if len(form.errs) != 0 {
		t.Errorf("dropped resolutions must not surface errors, got %v", form.errs)
	}
}

func TestTimeout_SurfacesErrorAndAllowsRetry(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := New(Config{PublicKey: "pkapi_cert_abc", Timeout: 20 * time.Millisecond}, frames, form)

	h.HandleSubmit()
	waitFor(t, form.errored, "timeout error")

	if n := form.submitCount(); n != 0 {
		t.Errorf("form must not submit on timeout, got %d submits", n)
	}
	if !h.HandleSubmit() {
		t.Error("the user must be able to retry after a timeout")
	}
}

func TestPostFailure_SurfacesImmediately(t *testing.T) {
	frames := &fakeFrames{postErr: errors.New("frames gone")}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	h.HandleSubmit()
	waitFor(t, form.errored, "post error")

	// The failed attempt must not leave the handshake stuck.
	frames.postErr = nil
	if !h.HandleSubmit() {
		t.Error("submit should work after a failed post")
	}
}

func TestClose_CancelsOutstandingExchange(t *testing.T) {
	frames := &fakeFrames{}
	form := newFakeForm()
	h := newTestHandshake(frames, form)

	h.HandleSubmit()
	h.Close()

	// A resolution arriving after teardown must not submit the form.
	h.ResolveSuccess(TokenSuccess{TokenValue: "tok1"})
	time.Sleep(50 * time.Millisecond)
	if n := form.submitCount(); n != 0 {
		t.Errorf("closed handshake must not submit, got %d submits", n)
	}

	if frames.closes != 1 {
		t.Errorf("frames should be released once, got %d", frames.closes)
	}

	// Closed handshakes ignore further submits; Close is idempotent.
	if h.HandleSubmit() {
		t.Error("closed handshake must ignore submits")
	}
	h.Close()
	if frames.closes != 1 {
		t.Errorf("second close must be a no-op, got %d closes", frames.closes)
	}
}
