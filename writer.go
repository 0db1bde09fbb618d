// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "fmt"

// Tell appends Value to the output stream named Key.
type Tell struct {
	Key   string
	Value any
}

func (Tell) EffectName() string { return "writer.tell" }

type writerHandler struct {
	key string
	out []any
}

// WriterHandler makes a handler accumulating [Tell] values for one keyed
// output stream, plus a reader for the accumulated log.
func WriterHandler(key string) (Handler, func() []any) {
	h := &writerHandler{key: key}
	return h, func() []any { return h.out }
}

func (h *writerHandler) Handle(e Effect, k *K) Expr {
	if op, ok := e.(Tell); ok && op.Key == h.key {
		h.out = append(h.out, op.Value)
		return Resume{K: k}
	}
	return Pass{}
}

func (h *writerHandler) HandlerName() string {
	return fmt.Sprintf("writer(%s)", h.key)
}

// WithWriter runs body with an output stream installed under key and
// evaluates to the body's result. The log is discarded; use
// [WriterHandler] directly to observe it.
func WithWriter(key string, body Expr) Expr {
	h, _ := WriterHandler(key)
	return Handle{Handler: h, Body: body}
}

// Listened pairs a computation's result with the output it emitted.
type Listened struct {
	Value any
	Log   []any
}

// ListenWriter runs body and yields a [Listened] holding its result and
// the values it told under key. The values are re-told afterwards, so
// they still reach the enclosing stream; without one the forwarding
// fails as an unhandled effect, like any bare [Tell].
func ListenWriter(key string, body Expr) Expr {
	h, out := WriterHandler(key)
	return Bind(Handle{Handler: h, Body: body}, func(v any) Expr {
		log := out()
		steps := make([]Expr, 0, len(log)+1)
		for _, x := range log {
			steps = append(steps, PerformOf(Tell{Key: key, Value: x}))
		}
		steps = append(steps, Pure{Value: Listened{Value: v, Log: log}})
		return Seq(steps...)
	})
}

// CensorWriter runs body, applies f to the values it told under key and
// forwards the rewritten log to the enclosing stream.
func CensorWriter(key string, f func([]any) []any, body Expr) Expr {
	h, out := WriterHandler(key)
	return Bind(Handle{Handler: h, Body: body}, func(v any) Expr {
		log := out()
		if f != nil {
			log = f(log)
		}
		steps := make([]Expr, 0, len(log)+1)
		for _, x := range log {
			steps = append(steps, PerformOf(Tell{Key: key, Value: x}))
		}
		steps = append(steps, Pure{Value: v})
		return Seq(steps...)
	})
}
