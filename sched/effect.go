// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"code.hybscloud.com/kontrol"
)

// Spawn starts Expr as a new task and yields its [*Task] handle to the
// spawner. The child does not run until the spawner suspends.
type Spawn struct{ Expr kontrol.Expr }

func (Spawn) EffectName() string { return "sched.spawn" }

// Wait suspends the performer until Task settles, yielding its value or
// throwing [*TaskError] at the wait point.
type Wait struct{ Task *Task }

func (Wait) EffectName() string { return "sched.wait" }

// Gather waits for every listed task and yields their values in argument
// order. The first failure, in settlement order, is thrown immediately as
// [*TaskError]; the remaining tasks keep running.
type Gather struct{ Tasks []*Task }

func (Gather) EffectName() string { return "sched.gather" }

// Race waits until any listed task settles and yields the first
// settlement, value or error alike. Losers keep running; their
// settlements are dropped.
type Race struct{ Tasks []*Task }

func (Race) EffectName() string { return "sched.race" }

// taskDone marks the end of a task body. The scheduler performs it from
// the wrapper installed around every task, never user code.
type taskDone struct {
	id  uintptr
	val any
	err error
}

func (taskDone) EffectName() string { return "sched.done" }
