package async

import (
	"context"
	"sync"

	"github.com/dshills/exthost/internal/event"
)

// Token is the cancellation signal handed to providers. Cancellation is
// cooperative: providers poll IsCancellationRequested or subscribe and
// return early.
type Token struct {
	ctx context.Context
}

// None is a token that is never cancelled.
var None = Token{ctx: context.Background()}

// TokenFor wraps an existing context.
func TokenFor(ctx context.Context) Token {
	if ctx == nil {
		return None
	}
	return Token{ctx: ctx}
}

// IsCancellationRequested reports whether cancellation has been signalled.
func (t Token) IsCancellationRequested() bool {
	if t.ctx == nil {
		return false
	}
	return t.ctx.Err() != nil
}

// OnCancellationRequested runs fn once, on its own goroutine, when the token
// is cancelled. If the token is already cancelled fn runs promptly.
// Disposing the result before cancellation prevents fn from running.
func (t Token) OnCancellationRequested(fn func()) event.Disposable {
	if t.ctx == nil || fn == nil {
		return event.Nop
	}
	stop := context.AfterFunc(t.ctx, fn)
	return event.DisposeFunc(func() { stop() })
}

// Context returns the context backing the token.
func (t Token) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// TokenSource creates and controls a Token.
type TokenSource struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTokenSource returns a source whose token is also cancelled when parent
// is done. A nil parent means no parent.
func NewTokenSource(parent context.Context) *TokenSource {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &TokenSource{ctx: ctx, cancel: cancel}
}

// Token returns the controlled token.
func (s *TokenSource) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Token{ctx: s.ctx}
}

// Cancel signals cancellation. Repeated calls are no-ops.
func (s *TokenSource) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// Dispose releases the source. Its token is cancelled.
func (s *TokenSource) Dispose() {
	s.Cancel()
}
