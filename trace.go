// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "sync"

// EventKind classifies capture-log entries.
type EventKind uint8

const (
	// TraceDispatch marks a dispatch starting: an effect was performed and
	// a continuation captured. The event carries the visible handler-stack
	// snapshot.
	TraceDispatch EventKind = iota

	// TraceResume marks a continuation resolved with a value, caller chain
	// preserved.
	TraceResume

	// TraceTransfer marks a continuation resolved with a value, caller
	// chain severed.
	TraceTransfer

	// TraceDelegate marks a handler re-offering the effect outward while
	// staying resident for the result.
	TraceDelegate

	// TracePass marks a handler declining the effect terminally.
	TracePass

	// TraceAbort marks a handler reply completing with a plain value,
	// abandoning the performer and ending the handler's scope with that
	// value.
	TraceAbort

	// TraceAbandon marks a continuation dropped without resumption: an
	// explicit [K.Discard], an abort's cascade, or an error unwinding
	// across the dispatch.
	TraceAbandon

	// TraceUnhandled marks a dispatch exhausting the handler stack.
	TraceUnhandled
)

// String names the kind for log rendering.
func (k EventKind) String() string {
	switch k {
	case TraceDispatch:
		return "dispatch"
	case TraceResume:
		return "resume"
	case TraceTransfer:
		return "transfer"
	case TraceDelegate:
		return "delegate"
	case TracePass:
		return "pass"
	case TraceAbort:
		return "abort"
	case TraceAbandon:
		return "abandon"
	case TraceUnhandled:
		return "unhandled"
	}
	return "unknown"
}

// Event is one chronological capture-log entry. Entries for a single
// dispatch share the continuation id KID: a [TraceDispatch] opens the
// dispatch, [TraceDelegate] and [TracePass] record intermediate offers, and
// exactly one of [TraceResume], [TraceTransfer], [TraceAbort],
// [TraceAbandon], or [TraceUnhandled] closes it.
//
// The log is the machine's complete account: entries are never filtered,
// summarized, or withheld. Rendering is the consumer's job.
type Event struct {
	// Kind classifies the entry.
	Kind EventKind

	// Seq is the entry's position in the machine's chronological order,
	// starting at 1.
	Seq uint64

	// KID is the id of the continuation this entry concerns.
	KID uint64

	// Effect is the effect family name, when the entry concerns one.
	Effect string

	// Handler names the acting handler, when one is known.
	Handler string

	// Stack is the visible handler-stack snapshot at dispatch, innermost
	// first. Set only on [TraceDispatch] entries.
	Stack []string
}

// TraceSink receives capture-log entries as the machine emits them.
// Implementations must not re-enter the machine.
type TraceSink interface {
	Trace(Event)
}

// Recorder is a slice-backed [TraceSink] safe for concurrent reads while
// the machine runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Trace implements [TraceSink].
func (r *Recorder) Trace(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded log in chronological order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len reports the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
