// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "sync"

// segment is a caller-linked run of frames: one thread of the call
// structure. Resume attaches a segment's root to the resuming computation;
// Transfer leaves it rooted at nil so the target runs fresh.
type segment struct {
	caller *segment
	frames []*frame

	// handlers installed at this segment's base, innermost last.
	handlers []Handler

	// sealed stops handler visibility walks here. Set for Eval and
	// CreateContinuation scopes.
	sealed bool

	// disp is set while this segment evaluates a handler reply.
	disp *dispatch
}

func newSegment(caller *segment, handlers []Handler, sealed bool) *segment {
	return &segment{caller: caller, handlers: handlers, sealed: sealed}
}

// pushFrame opens an activation record.
func (s *segment) pushFrame(meta *CallMeta) *frame {
	f := &frame{meta: meta}
	s.frames = append(s.frames, f)
	return f
}

func (s *segment) top() *frame {
	return s.frames[len(s.frames)-1]
}

// idle reports whether the segment would complete immediately when fed:
// no frame has a pending step. Idle segments are bypassed when a Resume
// splices a scope in, which keeps caller chains flat across handled
// effects whose replies end at the Resume node.
func (s *segment) idle() bool {
	for _, f := range s.frames {
		if len(f.steps) > 0 {
			return false
		}
	}
	return true
}

// dropFrames discards all pending work, returning pooled steps.
func (s *segment) dropFrames() {
	for _, f := range s.frames {
		f.drop()
	}
	s.frames = s.frames[:0]
}

// frame is one activation record: the pending continuations of a single
// computation unit, tagged with call metadata when a Call pushed it.
type frame struct {
	steps []step
	meta  *CallMeta
}

func (f *frame) push(st step) {
	f.steps = append(f.steps, st)
}

func (f *frame) pop() {
	f.steps = f.steps[:len(f.steps)-1]
}

func (f *frame) drop() {
	for _, st := range f.steps {
		if cs, ok := st.(*callStep); ok {
			releaseCallStep(cs)
		}
	}
	f.steps = f.steps[:0]
}

// step is one defunctionalized pending continuation within a frame.
// Dispatch uses type switches, not tags; step is a pure marker interface.
type step interface {
	step() // unexported marker method
}

// bindStep continues a FlatMap: the delivered value feeds F and the
// returned expression is evaluated next.
type bindStep struct {
	f func(any) Expr
}

func (bindStep) step() {}

// mapStep continues a Map: the delivered value is transformed in place.
type mapStep struct {
	f func(any) any
}

func (mapStep) step() {}

// callStep drives a Call through its sequential positions: Fn first, then
// each positional argument, then each keyword argument, then invocation.
// pos counts filled positions; the delivered value lands in the slot pos-1
// points at.
type callStep struct {
	call   Call
	fn     Callable
	args   []any
	kwvals []any
	pos    int
}

func (*callStep) step() {}

// callSteps recycles the per-call evaluation state. A callStep's lifecycle
// is fully owned by its frame: acquired when the Call node is classified,
// released at invocation or when the frame unwinds.
var callSteps = sync.Pool{New: func() any { return new(callStep) }}

func acquireCallStep(c Call) *callStep {
	s := callSteps.Get().(*callStep)
	s.call = c
	return s
}

func releaseCallStep(s *callStep) {
	s.call = Call{}
	s.fn = nil
	s.args = s.args[:0]
	s.kwvals = s.kwvals[:0]
	s.pos = 0
	callSteps.Put(s)
}

// callStack collects call metadata from seg outward, innermost first.
func callStack(seg *segment) []CallMeta {
	var out []CallMeta
	for s := seg; s != nil; s = s.caller {
		for i := len(s.frames) - 1; i >= 0; i-- {
			if m := s.frames[i].meta; m != nil {
				out = append(out, *m)
			}
		}
	}
	return out
}
