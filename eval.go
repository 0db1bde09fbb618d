// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

// eval classifies and interprets one control node. Classification is
// strict: a node is exactly one of the fixed control kinds or a hard
// error; bare effects and plain values never step.
func (m *Machine) eval(x Expr) {
	switch n := x.(type) {
	case Pure:
		m.produce(n.Value)
	case Call:
		cs := acquireCallStep(n)
		f := m.current.pushFrame(n.Meta)
		f.push(cs)
		m.node = n.Fn
	case Eval:
		hs, ok := copyHandlers(n.Handlers)
		if !ok {
			m.raise(&BadExprError{Node: n, Reason: "eval with nil handler"})
			return
		}
		child := newSegment(m.current, hs, true)
		child.pushFrame(nil)
		m.current = child
		m.node = n.Expr
	case Map:
		if n.F == nil {
			m.raise(&BadExprError{Node: n, Reason: "map with nil function"})
			return
		}
		m.current.top().push(mapStep{f: n.F})
		m.node = n.Source
	case FlatMap:
		if n.F == nil {
			m.raise(&BadExprError{Node: n, Reason: "flat map with nil function"})
			return
		}
		m.current.top().push(bindStep{f: n.F})
		m.node = n.Source
	case Handle:
		if n.Handler == nil {
			m.raise(&BadExprError{Node: n, Reason: "handle with nil handler"})
			return
		}
		child := newSegment(m.current, []Handler{n.Handler}, false)
		child.pushFrame(nil)
		m.current = child
		m.node = n.Body
	case Perform:
		m.perform(n.Effect)
	case Fail:
		if n.Err == nil {
			m.raise(&BadExprError{Node: n, Reason: "fail with nil error"})
			return
		}
		m.raise(n.Err)
	case Resume:
		m.resolve(n.K, n.Value, chainSplice)
	case ResumeError:
		if n.Err == nil {
			m.raise(&BadExprError{Node: n, Reason: "resume error with nil error"})
			return
		}
		m.resolveError(n.K, n.Err, chainSplice)
	case Transfer:
		m.resolve(n.K, n.Value, chainSever)
	case TransferError:
		if n.Err == nil {
			m.raise(&BadExprError{Node: n, Reason: "transfer error with nil error"})
			return
		}
		m.resolveError(n.K, n.Err, chainSever)
	case ResumeContinuation:
		m.resolve(n.K, n.Value, chainSplice)
	case Delegate:
		d := enclosingDispatch(m.current)
		if d == nil {
			m.raise(&BadExprError{Node: n, Reason: "delegate outside a live dispatch"})
			return
		}
		m.delegateOn(d, n.Effect)
	case Pass:
		d := enclosingDispatch(m.current)
		if d == nil {
			m.raise(&BadExprError{Node: n, Reason: "pass outside a live dispatch"})
			return
		}
		m.passOn(d, n.Effect)
	case GetHandlers:
		m.produce(visibleHandlers(m.current))
	case GetCallStack:
		m.produce(callStack(m.current))
	case GetContinuation:
		m.produce(m.newK(kInspect, m.current, nil))
	case CreateContinuation:
		hs, ok := copyHandlers(n.Handlers)
		if !ok {
			m.raise(&BadExprError{Node: n, Reason: "create continuation with nil handler"})
			return
		}
		seg := newSegment(nil, hs, true)
		seg.pushFrame(nil)
		k := m.newK(kCreated, seg, nil)
		k.expr = n.Expr
		m.produce(k)
	case Async:
		m.startAsync(n)
	default:
		if _, ok := x.(Effect); ok {
			m.raise(&BadExprError{Node: x, Reason: "bare effect; wrap it in Perform"})
			return
		}
		m.raise(&BadExprError{Node: x, Reason: "not a control node"})
	}
}

// copyHandlers snapshots an installation list, rejecting nil entries.
func copyHandlers(hs []Handler) ([]Handler, bool) {
	out := make([]Handler, len(hs))
	for i, h := range hs {
		if h == nil {
			return nil, false
		}
		out[i] = h
	}
	return out, true
}

// produce sets v as the pending value and switches to delivery.
func (m *Machine) produce(v any) {
	m.val = v
	m.node = nil
	m.feeding = true
}

// raise propagates err outward from the current point.
func (m *Machine) raise(err error) {
	m.unwind(m.current, err)
}

// feedOnce advances value delivery by one transition: the pending value
// lands in the innermost pending step, or completes a frame or segment.
func (m *Machine) feedOnce() {
	seg := m.current
	if len(seg.frames) == 0 {
		m.completeSegment(seg)
		return
	}
	f := seg.top()
	if len(f.steps) == 0 {
		seg.frames = seg.frames[:len(seg.frames)-1]
		return
	}
	switch st := f.steps[len(f.steps)-1].(type) {
	case bindStep:
		f.pop()
		e, err := m.applyBind(st.f, m.val)
		if err != nil {
			m.raise(err)
			return
		}
		m.node = e
		m.feeding = false
	case mapStep:
		f.pop()
		v, err := m.applyMap(st.f, m.val)
		if err != nil {
			m.raise(err)
			return
		}
		m.val = v
	case *callStep:
		m.stepCall(f, st)
	}
}

// completeSegment finishes the current segment with the pending value. An
// offer segment completing with its dispatch continuation unconsumed is
// the abort action: the performer is abandoned and the handler's scope
// ends here, evaluating to the value.
func (m *Machine) completeSegment(seg *segment) {
	if d := seg.disp; d != nil && d.k.abandon() {
		m.trace(Event{
			Kind:    TraceAbort,
			KID:     d.k.id,
			Effect:  d.effect.EffectName(),
			Handler: handlerName(d.acting.h),
		})
		m.abandonSuspension(d.k)
	}
	if seg.caller == nil {
		m.finish(m.val)
		return
	}
	m.current = seg.caller
}

// stepCall lands the delivered value in the call's next slot and either
// schedules the following position or invokes the callable.
func (m *Machine) stepCall(f *frame, cs *callStep) {
	switch {
	case cs.pos == 0:
		fn, ok := m.val.(Callable)
		if !ok {
			m.raise(&NotCallableError{Value: m.val})
			return
		}
		cs.fn = fn
	case cs.pos <= len(cs.call.Args):
		cs.args = append(cs.args, m.val)
	default:
		cs.kwvals = append(cs.kwvals, m.val)
	}
	cs.pos++
	if cs.pos <= len(cs.call.Args) {
		m.node = cs.call.Args[cs.pos-1]
		m.feeding = false
		return
	}
	if kwi := cs.pos - len(cs.call.Args) - 1; kwi < len(cs.call.Kwargs) {
		m.node = cs.call.Kwargs[kwi].Value
		m.feeding = false
		return
	}
	m.invoke(f, cs)
}

// invoke applies the resolved callable and evaluates the returned body in
// the call's frame, so the call stays visible on the call stack until the
// body completes.
func (m *Machine) invoke(f *frame, cs *callStep) {
	var kwargs map[string]any
	if len(cs.call.Kwargs) > 0 {
		kwargs = make(map[string]any, len(cs.call.Kwargs))
		for i, kw := range cs.call.Kwargs {
			kwargs[kw.Name] = cs.kwvals[i]
		}
	}
	if f.meta == nil {
		f.meta = &CallMeta{Func: cs.fn.CallableName()}
	}
	fn := cs.fn
	args := cs.args
	cs.args = nil // ownership moves to the callable
	f.pop()
	releaseCallStep(cs)
	body, err := m.invokeCallable(fn, args, kwargs)
	if err != nil {
		m.raise(err)
		return
	}
	m.node = body
	m.feeding = false
}

// unwind propagates err outward from seg. Each segment discards its
// pending work, then its catchers are consulted innermost first; a
// recovery replaces the scope's remaining computation. Offer segments
// never consult their own floor (a handler does not catch errors raised
// by its own reply), and crossing an unresolved one abandons its
// dispatch. An error nothing catches fails the run.
func (m *Machine) unwind(seg *segment, err error) {
	stampStack(err, seg)
	for s := seg; s != nil; s = s.caller {
		s.dropFrames()
		if s.disp == nil {
			for i := len(s.handlers) - 1; i >= 0; i-- {
				c, ok := s.handlers[i].(ErrorCatcher)
				if !ok {
					continue
				}
				rec, caught, perr := m.applyCatch(c, err)
				if perr != nil {
					err = perr
					continue
				}
				if caught {
					s.pushFrame(nil)
					m.current = s
					m.node = rec
					m.feeding = false
					return
				}
			}
			continue
		}
		if d := s.disp; d.k.abandon() {
			m.trace(Event{Kind: TraceAbandon, KID: d.k.id, Effect: d.effect.EffectName()})
			m.abandonSuspension(d.k)
		}
	}
	m.fail(err)
}
