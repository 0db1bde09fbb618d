// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import (
	"errors"
	"fmt"
)

// ErrStalled reports a machine that can never progress again: nothing is
// runnable, no completion is queued, and no host callback is outstanding.
var ErrStalled = errors.New("kontrol: machine stalled")

// UnhandledEffectError reports a performed effect that no handler in the
// visible stack resolved. It is raised at the perform site, so enclosing
// catchers may still recover from it.
type UnhandledEffectError struct {
	// Effect is the unresolved effect.
	Effect Effect

	// Handlers is the handler-stack snapshot of the failed dispatch,
	// innermost first.
	Handlers []string

	// Stack is the call metadata at the perform site, innermost first.
	Stack []CallMeta
}

func (e *UnhandledEffectError) Error() string {
	return "kontrol: unhandled effect " + e.Effect.EffectName()
}

// ReusedContinuationError reports a one-shot continuation consumed more
// than once, or one abandoned before the attempted use. Always a
// programming defect, never retried.
type ReusedContinuationError struct {
	// ID is the continuation's machine-unique id.
	ID uint64

	// Stack is the call metadata at the second consumption site, innermost
	// first.
	Stack []CallMeta
}

func (e *ReusedContinuationError) Error() string {
	return fmt.Sprintf("kontrol: continuation %d already consumed", e.ID)
}

// BadExprError reports a value the evaluator cannot step: a plain value or
// bare effect in evaluation position, a malformed node, or a dispatch reply
// node evaluated outside a live dispatch.
type BadExprError struct {
	// Node is the offending value.
	Node any

	// Reason describes the classification failure.
	Reason string

	// Stack is the call metadata at the evaluation position, innermost
	// first.
	Stack []CallMeta
}

func (e *BadExprError) Error() string {
	return fmt.Sprintf("kontrol: bad expression %T: %s", e.Node, e.Reason)
}

// NotCallableError reports a [Call] whose Fn position evaluated to a value
// that does not implement [Callable].
type NotCallableError struct {
	// Value is the non-callable value.
	Value any

	// Stack is the call metadata at the call position, innermost first.
	Stack []CallMeta
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("kontrol: %T is not callable", e.Value)
}

// DispatchDepthError reports the re-entrancy safety valve tripping: the
// number of live nested dispatches exceeded [Config.MaxDispatchDepth].
// This bounds handlers that re-perform without changing any state; genuine
// cycles are a defect in the handler, not the machine.
type DispatchDepthError struct {
	// Effect is the effect whose dispatch tripped the valve.
	Effect Effect

	// Depth is the live dispatch depth that was reached.
	Depth int

	// Stack is the call metadata at the tripping perform, innermost first.
	Stack []CallMeta
}

func (e *DispatchDepthError) Error() string {
	return fmt.Sprintf("kontrol: dispatch depth %d exceeded handling %s", e.Depth, e.Effect.EffectName())
}

// PanicError wraps a panic from host code: a handler, a [Callable] body, a
// [Map] or [FlatMap] function, or an [Async] start function. It propagates
// through the machine as an ordinary raised error. The panicking code is
// host Go, so the report is the goroutine stack rather than call metadata;
// the program-level trail around it is in the capture log.
type PanicError struct {
	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("kontrol: panic in host code: %v", e.Value)
}

// stampStack records the raise point's call metadata on machine errors
// that carry one. Unwinding drops the frames themselves, so the trail is
// captured before propagation begins; an error re-raised into another
// chain keeps the stack of its original raise.
func stampStack(err error, seg *segment) {
	var slot *[]CallMeta
	switch e := err.(type) {
	case *UnhandledEffectError:
		slot = &e.Stack
	case *ReusedContinuationError:
		slot = &e.Stack
	case *BadExprError:
		slot = &e.Stack
	case *NotCallableError:
		slot = &e.Stack
	case *DispatchDepthError:
		slot = &e.Stack
	default:
		return
	}
	if *slot == nil {
		*slot = callStack(seg)
	}
}
