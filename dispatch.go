// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

// handlerEntry pairs a visible handler with the segment it is installed at.
type handlerEntry struct {
	h   Handler
	seg *segment
}

// dispatch is the per-Perform bookkeeping: the effect, the captured
// continuation, the handler snapshot taken at the perform point, and the
// walk position within it. Delegation chains dispatches through parent.
type dispatch struct {
	effect Effect
	k      *K

	// snapshot is the full visible handler stack at the perform point,
	// innermost first. The walk offers snapshot[idx] next.
	snapshot []handlerEntry
	idx      int

	// acting is the entry currently offered; offer is the segment its
	// reply evaluates in.
	acting handlerEntry
	offer  *segment

	// parent is the dispatch a Delegate suspended, nil at the root.
	parent *dispatch

	// depth counts live nested dispatches for the safety valve.
	depth int
}

// clearFloor empties the offer segment's handler floor once the captured
// continuation is consumed. The floor mirrors the inner snapshot so a
// reply dispatches against the full stack; after a Resume splices the
// captured chain back in, the chain itself supplies those handlers and the
// floor would double-list them.
func (d *dispatch) clearFloor() {
	if d.offer != nil {
		d.offer.handlers = nil
	}
}

// visibleEntries walks the handler stack visible from seg, innermost
// first, stopping after a sealed segment's own handlers.
func visibleEntries(seg *segment) []handlerEntry {
	var out []handlerEntry
	for s := seg; s != nil; s = s.caller {
		for i := len(s.handlers) - 1; i >= 0; i-- {
			out = append(out, handlerEntry{h: s.handlers[i], seg: s})
		}
		if s.sealed {
			break
		}
	}
	return out
}

// visibleHandlers is visibleEntries without the segment pairing, for
// GetHandlers.
func visibleHandlers(seg *segment) []Handler {
	ents := visibleEntries(seg)
	out := make([]Handler, len(ents))
	for i, e := range ents {
		out[i] = e.h
	}
	return out
}

// liveDepth finds the depth of the innermost live dispatch enclosing seg:
// one whose reply still runs with an unconsumed continuation. Spliced-in
// replies of resolved dispatches do not count, so ordinary handled effects
// keep the depth flat and only genuine re-entrant nesting grows it.
func liveDepth(seg *segment) int {
	for s := seg; s != nil; s = s.caller {
		if s.disp != nil && !s.disp.k.Consumed() {
			return s.disp.depth
		}
	}
	return 0
}

// enclosingDispatch finds the live dispatch a Delegate or Pass refers to:
// the innermost offer segment with an unresolved continuation, not looking
// past sealed scopes.
func enclosingDispatch(seg *segment) *dispatch {
	for s := seg; s != nil; s = s.caller {
		if s.disp != nil && !s.disp.k.Consumed() {
			return s.disp
		}
		if s.sealed {
			break
		}
	}
	return nil
}

// perform starts a dispatch for e at the current segment.
func (m *Machine) perform(e Effect) {
	if e == nil {
		m.raise(&BadExprError{Node: Perform{}, Reason: "perform of nil effect"})
		return
	}
	depth := liveDepth(m.current) + 1
	if m.cfg.MaxDispatchDepth > 0 && depth > m.cfg.MaxDispatchDepth {
		m.raise(&DispatchDepthError{Effect: e, Depth: depth})
		return
	}
	d := &dispatch{
		effect:   e,
		snapshot: visibleEntries(m.current),
		depth:    depth,
	}
	d.k = m.newK(kDispatch, m.current, d)
	m.traceDispatch(d)
	m.offerNext(d)
}

// snapshotNames lists the snapshot's handler names, innermost first.
func (d *dispatch) snapshotNames() []string {
	names := make([]string, len(d.snapshot))
	for i, ent := range d.snapshot {
		names[i] = handlerName(ent.h)
	}
	return names
}

// traceDispatch logs a dispatch opening with its handler-stack snapshot.
func (m *Machine) traceDispatch(d *dispatch) {
	if m.cfg.Trace == nil {
		return
	}
	m.trace(Event{
		Kind:   TraceDispatch,
		KID:    d.k.id,
		Effect: d.effect.EffectName(),
		Stack:  d.snapshotNames(),
	})
}

// offerNext offers the dispatch to the next handler in the snapshot, or
// resolves it as unhandled when the walk is exhausted. The reply evaluates
// in a fresh offer segment whose caller is the acting handler's caller and
// whose handler floor mirrors the inner snapshot, so the reply dispatches
// against the same handler stack the performer saw.
func (m *Machine) offerNext(d *dispatch) {
	if d.idx >= len(d.snapshot) {
		m.trace(Event{Kind: TraceUnhandled, KID: d.k.id, Effect: d.effect.EffectName()})
		if err := d.k.consume(); err != nil {
			m.raise(err)
			return
		}
		// the chain is untouched: the error surfaces at the perform
		// site and unwinds the performer's own scopes
		m.current = d.k.seg
		m.unwind(d.k.seg, &UnhandledEffectError{Effect: d.effect, Handlers: d.snapshotNames()})
		return
	}
	ent := d.snapshot[d.idx]
	d.idx++
	d.acting = ent

	floor := make([]Handler, d.idx)
	for i := 0; i < d.idx; i++ {
		floor[d.idx-1-i] = d.snapshot[i].h
	}
	offer := newSegment(ent.seg.caller, floor, false)
	offer.disp = d
	d.offer = offer
	offer.pushFrame(&CallMeta{Func: handlerName(ent.h)})
	m.current = offer

	reply, perr := m.invokeHandler(ent.h, d.effect, d.k)
	if perr != nil {
		m.unwind(offer, perr)
		return
	}
	m.evalReply(reply)
}

// evalReply feeds a handler reply into the current offer segment. Unlike
// ordinary evaluation positions, a reply that is not a control node is the
// abort action: it flows through as the handler scope's value.
func (m *Machine) evalReply(reply Expr) {
	if _, ok := reply.(Ctrl); ok {
		m.node = reply
		m.feeding = false
		return
	}
	if _, ok := reply.(Effect); ok {
		m.raise(&BadExprError{Node: reply, Reason: "bare effect in handler reply; wrap it in Perform"})
		return
	}
	m.produce(reply)
}

// passOn reoffers the dispatch outward after a Pass. The passing reply is
// discarded; the same continuation rides the remaining walk.
func (m *Machine) passOn(d *dispatch, replacement Effect) {
	if replacement != nil {
		d.effect = replacement
	}
	m.trace(Event{
		Kind:    TracePass,
		KID:     d.k.id,
		Effect:  d.effect.EffectName(),
		Handler: handlerName(d.acting.h),
	})
	d.offer = nil
	m.offerNext(d)
}

// delegateOn suspends the current reply at the Delegate node and reoffers
// the effect outward under a child dispatch. The outer handler resolves
// the child's continuation, which lands its result at the Delegate
// position; the original performer stays suspended on the parent dispatch.
func (m *Machine) delegateOn(d *dispatch, replacement Effect) {
	effect := d.effect
	if replacement != nil {
		effect = replacement
	}
	m.trace(Event{
		Kind:    TraceDelegate,
		KID:     d.k.id,
		Effect:  effect.EffectName(),
		Handler: handlerName(d.acting.h),
	})
	child := &dispatch{
		effect:   effect,
		snapshot: d.snapshot,
		idx:      d.idx,
		parent:   d,
		depth:    d.depth + 1,
	}
	// the child captures from the Delegate node itself, so segments the
	// reply opened above the offer base stay part of the suspension
	child.k = m.newK(kDispatch, m.current, child)
	m.traceDispatch(child)
	m.offerNext(child)
}

// abandonSuspension drops the suspension captured by an already-abandoned
// k. Offer segments inside it can hold dispatches still awaiting
// resolution, including the parents of a delegation chain; nothing can
// resolve those once the chain is dropped, so their continuations are
// abandoned too, recursively.
func (m *Machine) abandonSuspension(k *K) {
	stop := k.delim()
	for s := k.seg; s != nil; s = s.caller {
		if d := s.disp; d != nil && d.k.abandon() {
			m.trace(Event{Kind: TraceAbandon, KID: d.k.id, Effect: d.effect.EffectName()})
			m.abandonSuspension(d.k)
		}
		if s == stop {
			break
		}
	}
}

// chainMode selects what happens to a claimed continuation's caller link.
type chainMode uint8

const (
	chainSplice chainMode = iota // attach to the consuming segment
	chainSever                   // root the target freshly
)

// claim validates and consumes k for machine-side resolution, logs the
// terminal event, and rewires the delimiting segment's caller per mode.
// Reports false after raising when k cannot be claimed.
func (m *Machine) claim(k *K, mode chainMode) bool {
	if k == nil {
		m.raise(&BadExprError{Node: nil, Reason: "nil continuation"})
		return false
	}
	if k.kind == kInspect {
		m.raise(&BadExprError{Node: k, Reason: "inspection continuation is not resumable"})
		return false
	}
	if k.m != m {
		m.raise(&BadExprError{Node: k, Reason: "continuation belongs to another machine"})
		return false
	}
	if err := k.consume(); err != nil {
		m.raise(err)
		return false
	}
	if mode == chainSplice {
		m.trace(Event{Kind: TraceResume, KID: k.id})
	} else {
		m.trace(Event{Kind: TraceTransfer, KID: k.id})
	}
	if k.kind == kAsync {
		m.pending.Add(-1)
	}
	if k.disp != nil {
		k.disp.clearFloor()
	}
	if mode == chainSplice {
		k.delim().caller = m.spliceTarget()
	} else {
		k.delim().caller = nil
	}
	return true
}

// resolve consumes k and continues its computation with v. Splicing keeps
// the target scope's caller chain attached here, so the scope's final
// result is delivered back at this point; severing roots the target fresh
// and control never returns.
func (m *Machine) resolve(k *K, v any, mode chainMode) {
	if !m.claim(k, mode) {
		return
	}
	m.current = k.seg
	if k.kind == kCreated {
		m.node = k.expr
		k.expr = nil
		m.feeding = false
		return
	}
	m.produce(v)
}

// resolveError consumes k and raises err at its suspension point.
func (m *Machine) resolveError(k *K, err error, mode chainMode) {
	if !m.claim(k, mode) {
		return
	}
	if k.kind == kCreated {
		k.expr = nil
	}
	m.current = k.seg
	m.unwind(k.seg, err)
}

// spliceTarget returns the segment a resumed scope should report to. Idle
// segments complete instantly when fed, so they are bypassed; otherwise
// every handled effect whose reply ends at its Resume node would leave one
// empty segment in the caller chain forever.
func (m *Machine) spliceTarget() *segment {
	s := m.current
	for s.caller != nil && s.idle() && (s.disp == nil || s.disp.k.Consumed()) {
		s = s.caller
	}
	return s
}
