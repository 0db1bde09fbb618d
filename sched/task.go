// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrDeadlock reports that every task is suspended with nothing left
	// to run. It is thrown at the suspension that would never return, so
	// the performer may recover; uncaught, it fails the run.
	ErrDeadlock = errors.New("sched: all tasks suspended")

	// ErrEmptyRace reports a [Race] over no tasks.
	ErrEmptyRace = errors.New("sched: race over no tasks")

	// ErrUnknownTask reports a wait on a nil task or on a task owned by
	// another scheduler.
	ErrUnknownTask = errors.New("sched: unknown task")
)

// Task is the opaque handle of one spawned computation. Handles are only
// meaningful to the scheduler that issued them.
type Task struct {
	id uintptr
	s  *Scheduler

	done bool
	val  any
	err  error

	// waiters run once, in registration order, when the task settles.
	waiters []func(val any, err error)
}

func (t *Task) settle(v any, err error) {
	if t.done {
		return
	}
	t.done = true
	t.val, t.err = v, err
	ws := t.waiters
	t.waiters = nil
	for _, w := range ws {
		w(v, err)
	}
}

// TaskError wraps a failure escaping a task body, delivered to whoever
// waits on the task.
type TaskError struct {
	Task *Task
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("sched: task failed: %v", e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
