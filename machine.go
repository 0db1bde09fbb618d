// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import (
	"sync"
	"sync/atomic"
)

// Config parameterizes a [Machine]. The zero value runs untraced with an
// unbounded dispatch depth.
type Config struct {
	// Trace receives the capture log. Nil disables tracing.
	Trace TraceSink

	// MaxDispatchDepth bounds live nested dispatches, the safety valve
	// against handler protocols that re-perform without ever resolving.
	// Zero means unbounded.
	MaxDispatchDepth int
}

// Status reports a machine's state between steps.
type Status uint8

const (
	// Continue means more transitions are pending.
	Continue Status = iota
	// Blocked means only a host completion can make progress.
	Blocked
	// Done means the program finished with a value.
	Done
	// Failed means an error reached the root uncaught.
	Failed
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Blocked:
		return "blocked"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// completion is a host-side settlement waiting to enter the machine.
type completion struct {
	k   *K
	val any
	err error
}

// Machine evaluates one program by repeated small transitions. All
// stepping happens on a single goroutine; the only cross-goroutine entry
// points are [K.Complete], [K.TryComplete] and [K.Discard], which
// serialize through the completion queue. A machine is single use: once
// [Done] or [Failed] it never steps again.
type Machine struct {
	cfg Config

	// current is the segment being evaluated; nil while the machine idles
	// between a suspension and the next completion.
	current *segment
	// node is the next control node when not feeding.
	node Expr
	// val is the pending value while feeding.
	val     any
	feeding bool

	status Status
	result any
	err    error

	// pending counts outstanding asynchronous continuations.
	pending atomic.Int64

	cmu  sync.Mutex
	cq   []completion
	wake chan struct{}

	kseq uint64
	tseq atomic.Uint64
}

// NewMachine prepares expr for stepping under cfg.
func NewMachine(expr Expr, cfg Config) *Machine {
	m := &Machine{cfg: cfg, wake: make(chan struct{}, 1)}
	root := newSegment(nil, nil, false)
	root.pushFrame(nil)
	m.current = root
	m.node = expr
	return m
}

// Step advances the machine by one transition and reports its state.
// Once [Done] or [Failed] is returned, further calls return the same
// status without effect.
func (m *Machine) Step() Status {
	switch m.status {
	case Done, Failed:
		return m.status
	}
	if m.current == nil {
		if c, ok := m.popCompletion(); ok {
			m.status = Continue
			m.deliver(c)
			return m.stepStatus()
		}
		if m.pending.Load() > 0 {
			m.status = Blocked
			return Blocked
		}
		m.fail(ErrStalled)
		return Failed
	}
	if m.feeding {
		m.feedOnce()
	} else {
		node := m.node
		m.node = nil
		m.eval(node)
	}
	return m.stepStatus()
}

func (m *Machine) stepStatus() Status {
	switch m.status {
	case Done, Failed:
		return m.status
	}
	return Continue
}

// Run steps the machine to completion, parking while blocked on host
// completions.
func (m *Machine) Run() (any, error) {
	for {
		switch m.Step() {
		case Continue:
		case Blocked:
			<-m.wake
		case Done:
			return m.result, nil
		case Failed:
			return nil, m.err
		}
	}
}

// Status reports the machine's state as of the last step.
func (m *Machine) Status() Status { return m.status }

// Result returns the final value once the machine is [Done].
func (m *Machine) Result() any { return m.result }

// Err returns the terminal error once the machine is [Failed].
func (m *Machine) Err() error { return m.err }

func (m *Machine) finish(v any) {
	m.status = Done
	m.result = v
	m.current = nil
	m.node = nil
	m.feeding = false
}

func (m *Machine) fail(err error) {
	m.status = Failed
	m.err = err
	m.current = nil
	m.node = nil
	m.feeding = false
}

func (m *Machine) newK(kind kKind, seg *segment, d *dispatch) *K {
	m.kseq++
	return &K{m: m, seg: seg, disp: d, id: m.kseq, kind: kind}
}

func (m *Machine) trace(ev Event) {
	if m.cfg.Trace == nil {
		return
	}
	ev.Seq = m.tseq.Add(1)
	m.cfg.Trace.Trace(ev)
}

func (m *Machine) enqueue(c completion) {
	m.cmu.Lock()
	m.cq = append(m.cq, c)
	m.cmu.Unlock()
	m.signal()
}

// signal wakes a parked Run without blocking the caller.
func (m *Machine) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Machine) popCompletion() (completion, bool) {
	m.cmu.Lock()
	defer m.cmu.Unlock()
	if len(m.cq) == 0 {
		return completion{}, false
	}
	c := m.cq[0]
	m.cq = m.cq[1:]
	return c, true
}

// deliver continues a host-completed continuation. Completion severs the
// captured chain from its origin, like Transfer.
func (m *Machine) deliver(c completion) {
	k := c.k
	m.trace(Event{Kind: TraceTransfer, KID: k.id})
	if k.kind == kAsync {
		m.pending.Add(-1)
	}
	if k.disp != nil {
		k.disp.clearFloor()
	}
	k.delim().caller = nil
	m.current = k.seg
	if c.err != nil {
		m.unwind(k.seg, c.err)
		return
	}
	if k.kind == kCreated {
		m.node = k.expr
		k.expr = nil
		m.feeding = false
		return
	}
	m.produce(c.val)
}

// Run evaluates expr on a fresh machine with the zero configuration.
func Run(expr Expr) (any, error) {
	return NewMachine(expr, Config{}).Run()
}
