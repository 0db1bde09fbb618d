// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

// onErrorHandler runs a cleanup expression when an error unwinds through
// its scope, then lets the error continue outward. The done flag keeps
// the re-raised error from triggering the cleanup a second time.
type onErrorHandler struct {
	cleanup func() Expr
	done    bool
}

func (h *onErrorHandler) Handle(e Effect, k *K) Expr { return Pass{} }

func (h *onErrorHandler) CatchError(err error) (Expr, bool) {
	if h.done {
		return nil, false
	}
	h.done = true
	return Then(h.cleanup(), Fail{Err: err}), true
}

func (h *onErrorHandler) HandlerName() string { return "on-error" }

// OnError runs cleanup if an error unwinds out of body, then re-raises
// the error. If cleanup itself fails, its error replaces the original.
func OnError(body Expr, cleanup func() Expr) Expr {
	return Handle{Handler: &onErrorHandler{cleanup: cleanup}, Body: body}
}

// Bracket acquires a resource, applies use to it and releases it exactly
// once on both the normal and the error path. Abandonment is the one
// exception: a scope dropped by abort or [K.Discard] is discarded without
// unwinding, so release does not fire there.
func Bracket(acquire Expr, use func(any) Expr, release func(any) Expr) Expr {
	return Bind(acquire, func(r any) Expr {
		guarded := OnError(use(r), func() Expr { return release(r) })
		return Bind(guarded, func(v any) Expr {
			return Then(release(r), Pure{Value: v})
		})
	})
}
