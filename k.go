// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "sync/atomic"

type kKind uint8

const (
	kDispatch kKind = iota // captured by an effect dispatch
	kCreated               // packaged by CreateContinuation, unstarted
	kAsync                 // captured by Async, completed by the host
	kInspect               // GetContinuation handle, not consumable
)

// K identifies a suspended point uniquely and is consumable exactly once,
// by [Resume], [Transfer], their error variants, [ResumeContinuation], or
// [K.Complete]. A second consumption is a programming defect surfaced as
// [*ReusedContinuationError] (or a panic from Complete), never a silent
// re-entry into a stale frame.
type K struct {
	m    *Machine
	seg  *segment
	disp *dispatch
	id   uint64
	kind kKind
	used atomic.Uintptr

	// expr holds an unstarted CreateContinuation body until first resume.
	expr Expr
}

// ID returns the continuation's machine-unique id. Capture-log entries for
// the dispatch that created this continuation carry the same id.
func (k *K) ID() uint64 { return k.id }

// Consumed reports whether the continuation has been resumed, transferred,
// completed, or abandoned.
func (k *K) Consumed() bool { return k.used.Load() != 0 }

// CallStack reports the call metadata visible from the suspension point,
// innermost first.
func (k *K) CallStack() []CallMeta { return callStack(k.seg) }

// consume claims the continuation for machine-side resolution.
func (k *K) consume() error {
	if k.used.Add(1) != 1 {
		return &ReusedContinuationError{ID: k.id}
	}
	return nil
}

// abandon claims the continuation silently, reporting whether this call
// claimed it.
func (k *K) abandon() bool {
	return k.used.Add(1) == 1
}

// delim returns the segment delimiting this continuation's scope: the
// acting handler's segment for dispatch captures, the chain root otherwise.
func (k *K) delim() *segment {
	if k.disp != nil {
		return k.disp.acting.seg
	}
	s := k.seg
	for s.caller != nil {
		s = s.caller
	}
	return s
}

// Complete delivers a completion from host code, from any goroutine. The
// machine dequeues it at its next idle step and continues the suspended
// computation with v, or raises err at the suspension point when err is
// non-nil. Completion severs the target's caller chain, like [Transfer].
//
// Panics if the continuation was already consumed.
func (k *K) Complete(v any, err error) {
	if k.kind == kInspect {
		panic("kontrol: inspection continuation cannot be completed")
	}
	if !k.TryComplete(v, err) {
		panic("kontrol: continuation completed twice")
	}
}

// TryComplete is [K.Complete] reporting reuse instead of panicking.
func (k *K) TryComplete(v any, err error) bool {
	if k.kind == kInspect {
		return false
	}
	if k.used.Add(1) != 1 {
		return false
	}
	k.m.enqueue(completion{k: k, val: v, err: err})
	return true
}

// Discard drops the continuation without resuming it: the suspended
// computation is recorded as abandoned and will never run. Discarding a
// machine's only outstanding continuation stalls it. Consumed
// continuations are ignored.
//
// Discard on an [Async] continuation may be called from any goroutine;
// otherwise it belongs in machine context (a handler or callable body).
func (k *K) Discard() {
	if k.kind == kInspect {
		return
	}
	if !k.abandon() {
		return
	}
	if k.kind == kAsync {
		k.m.pending.Add(-1)
		k.m.signal()
	}
	k.m.trace(Event{Kind: TraceAbandon, KID: k.id})
	k.m.abandonSuspension(k)
}
