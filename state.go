// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "fmt"

// Keyed mutable state as ordinary handlers. Each handler instance owns
// one cell; requests for other keys pass outward, so nested cells with
// distinct keys coexist on one chain.

// Get reads the state cell named Key.
type Get struct{ Key string }

func (Get) EffectName() string { return "state.get" }

// Put replaces the state cell named Key.
type Put struct {
	Key   string
	Value any
}

func (Put) EffectName() string { return "state.put" }

// Modify applies F to the cell named Key and yields the new value.
type Modify struct {
	Key string
	F   func(any) any
}

func (Modify) EffectName() string { return "state.modify" }

type stateHandler struct {
	key string
	val any
}

// StateHandler makes a handler owning one state cell and a reader for its
// final value once the handled scope has finished.
func StateHandler(key string, initial any) (Handler, func() any) {
	h := &stateHandler{key: key, val: initial}
	return h, func() any { return h.val }
}

func (h *stateHandler) Handle(e Effect, k *K) Expr {
	switch op := e.(type) {
	case Get:
		if op.Key != h.key {
			return Pass{}
		}
		return Resume{K: k, Value: h.val}
	case Put:
		if op.Key != h.key {
			return Pass{}
		}
		h.val = op.Value
		return Resume{K: k}
	case Modify:
		if op.Key != h.key {
			return Pass{}
		}
		if op.F == nil {
			return ResumeError{K: k, Err: &BadExprError{Node: op, Reason: "modify with nil function"}}
		}
		h.val = op.F(h.val)
		return Resume{K: k, Value: h.val}
	default:
		return Pass{}
	}
}

func (h *stateHandler) HandlerName() string {
	return fmt.Sprintf("state(%s)", h.key)
}

// WithState runs body under a fresh state cell and evaluates to the
// body's result. The final cell value is discarded; use [StateHandler]
// directly to observe it.
func WithState(key string, initial any, body Expr) Expr {
	h, _ := StateHandler(key, initial)
	return Handle{Handler: h, Body: body}
}
