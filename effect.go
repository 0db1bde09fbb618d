// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

// Effect is the interface for effect values: open, user-extensible
// operation data resolved by installed handlers. The machine never inspects
// an effect beyond its name; only handlers downcast to the concrete kinds
// they know.
//
// An effect is not evaluable by itself. Wrap it in [Perform] to request it.
type Effect interface {
	// EffectName identifies the effect family for diagnostics and tracing.
	EffectName() string
}

// Handler resolves performed effects. Handlers are installed for a dynamic
// extent via [Handle], [Eval], or [CreateContinuation].
//
// Handle receives the effect and the performer's one-shot continuation and
// replies with an expression. Control nodes give the reply its meaning:
// [Resume] and [Transfer] resolve the effect, [Delegate] and [Pass] send it
// to the next outer handler, and a reply that completes with a plain value
// aborts the performer, the value becoming the result of the handler's
// scope. An error raised by the reply unwinds through the scope.
//
// Handlers are re-entrant: a reply may perform effects, including ones this
// same handler resolves, and dispatch starts fresh from the full handler
// stack visible at the original perform point.
type Handler interface {
	Handle(e Effect, k *K) Expr
}

// HandlerFunc adapts a plain function to [Handler].
type HandlerFunc func(e Effect, k *K) Expr

// Handle implements [Handler].
func (f HandlerFunc) Handle(e Effect, k *K) Expr { return f(e, k) }

// ErrorCatcher is the optional interface for handlers that intercept errors
// unwinding through their scope. CatchError returns the recovery expression
// and true to stop the unwind, or false to let the error continue outward.
// The recovery expression evaluates in place of the scope's remaining
// computation.
//
// A handler is never consulted for errors raised by its own reply.
type ErrorCatcher interface {
	CatchError(err error) (Expr, bool)
}

// NamedHandler is the optional interface for handlers that identify
// themselves in trace output. Handlers without it appear as "handler".
type NamedHandler interface {
	HandlerName() string
}

func handlerName(h Handler) string {
	if n, ok := h.(NamedHandler); ok {
		return n.HandlerName()
	}
	return "handler"
}
