// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "fmt"

// startAsync suspends the current point and hands the captured
// continuation to host code. The machine idles until the completion
// arrives on the queue; the host may complete synchronously, from another
// goroutine, or never (leaving the machine [Blocked] until [K.Discard]).
func (m *Machine) startAsync(n Async) {
	if n.Start == nil {
		m.raise(&BadExprError{Node: n, Reason: "async with nil start"})
		return
	}
	k := m.newK(kAsync, m.current, nil)
	m.pending.Add(1)
	m.current = nil
	m.node = nil
	m.feeding = false
	perr := m.runStart(n.Start, k)
	if perr == nil {
		return
	}
	if k.abandon() {
		// not yet completed; surface the panic at the suspension point
		m.pending.Add(-1)
		m.current = k.seg
		m.unwind(k.seg, perr)
		return
	}
	// completed and then panicked: the host broke the start contract and
	// the suspension is already owned by the queued completion
	pe := perr.(*PanicError)
	panic(fmt.Sprintf("kontrol: async start panicked after completing: %v", pe.Value))
}
