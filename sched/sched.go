// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched is a cooperative task scheduler built as an ordinary
// kontrol handler. Tasks are continuations in one machine; [Spawn],
// [Wait], [Gather] and [Race] are effects the scheduler answers, and
// switching between tasks is always a transfer, so suspended tasks stay
// rooted at their own bases and chains never grow with task count.
//
// The scheduler only sees suspensions that reach it as effects. A task
// parked on a machine-level [kontrol.Async] is invisible to the ready
// queue, so a program mixing the two can be reported deadlocked while a
// host completion is still on its way.
package sched

import (
	"github.com/zephyrtronium/contains"

	"code.hybscloud.com/kontrol"
)

// mainID names task one, the program given to [Scheduler.Main].
const mainID uintptr = 1

// ready is one runnable entry: a task continuation and the settlement to
// deliver into it.
type ready struct {
	k   *kontrol.K
	val any
	err error
	id  uintptr
}

// Scheduler multiplexes tasks over one machine. It implements
// [kontrol.Handler] for the sched effects, passes everything else
// outward, and implements [kontrol.ErrorCatcher] so a failure escaping a
// task body settles the task instead of failing the run.
type Scheduler struct {
	nextID  uintptr
	tasks   map[uintptr]*Task
	queue   []ready
	current uintptr

	winners contains.Set
	raceSeq uintptr

	mainSet bool
	mainVal any
	mainErr error
}

// NewScheduler makes an empty scheduler. One scheduler drives one
// machine; handles are not valid across schedulers.
func NewScheduler() *Scheduler {
	return &Scheduler{nextID: mainID + 1, tasks: make(map[uintptr]*Task)}
}

// Main wraps program so the whole run is scheduled: program becomes task
// one, and the machine's result is task one's result once every other
// task has drained.
func (s *Scheduler) Main(program kontrol.Expr) kontrol.Expr {
	pack := kontrol.CreateContinuation{
		Expr:     s.wrap(mainID, program),
		Handlers: []kontrol.Handler{s},
	}
	return kontrol.Bind(pack, func(kv any) kontrol.Expr {
		s.current = mainID
		return kontrol.Transfer{K: kv.(*kontrol.K)}
	})
}

// Run evaluates program under a fresh scheduler on a fresh machine.
func Run(program kontrol.Expr) (any, error) {
	return RunWith(program, kontrol.Config{})
}

// RunWith is [Run] with a machine configuration.
func RunWith(program kontrol.Expr, cfg kontrol.Config) (any, error) {
	s := NewScheduler()
	return kontrol.NewMachine(s.Main(program), cfg).Run()
}

// wrap closes a task body with the settlement perform, so the scheduler
// regains control however the body ends.
func (s *Scheduler) wrap(id uintptr, e kontrol.Expr) kontrol.Expr {
	return kontrol.Bind(e, func(v any) kontrol.Expr {
		return kontrol.PerformOf(taskDone{id: id, val: v})
	})
}

func (s *Scheduler) Handle(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
	switch op := e.(type) {
	case Spawn:
		return s.spawn(op, k)
	case Wait:
		return s.wait(op, k)
	case Gather:
		return s.gather(op, k)
	case Race:
		return s.race(op, k)
	case taskDone:
		return s.finish(op, k)
	default:
		return kontrol.Pass{}
	}
}

// CatchError settles the current task with the escaping error. Main's
// failure becomes the run's failure; any other task's failure is held
// for its waiters.
func (s *Scheduler) CatchError(err error) (kontrol.Expr, bool) {
	return kontrol.PerformOf(taskDone{id: s.current, err: err}), true
}

func (s *Scheduler) HandlerName() string { return "sched" }

func (s *Scheduler) spawn(op Spawn, k *kontrol.K) kontrol.Expr {
	t := &Task{id: s.nextID, s: s}
	s.nextID++
	s.tasks[t.id] = t
	// the child inherits every handler visible at the spawn point, so
	// effects it performs dispatch as they would have in the spawner
	return kontrol.Bind(kontrol.GetHandlers{}, func(v any) kontrol.Expr {
		vis := v.([]kontrol.Handler)
		hs := make([]kontrol.Handler, len(vis))
		for i, h := range vis {
			hs[len(vis)-1-i] = h
		}
		pack := kontrol.CreateContinuation{Expr: s.wrap(t.id, op.Expr), Handlers: hs}
		return kontrol.Bind(pack, func(kv any) kontrol.Expr {
			s.queue = append(s.queue, ready{k: kv.(*kontrol.K), id: t.id})
			return kontrol.Transfer{K: k, Value: t}
		})
	})
}

func (s *Scheduler) wait(op Wait, k *kontrol.K) kontrol.Expr {
	t := op.Task
	if t == nil || t.s != s {
		return kontrol.TransferError{K: k, Err: ErrUnknownTask}
	}
	if t.done {
		if t.err != nil {
			return kontrol.TransferError{K: k, Err: &TaskError{Task: t, Err: t.err}}
		}
		return kontrol.Transfer{K: k, Value: t.val}
	}
	if len(s.queue) == 0 {
		return kontrol.TransferError{K: k, Err: ErrDeadlock}
	}
	waiter := s.current
	t.waiters = append(t.waiters, func(v any, err error) {
		if err != nil {
			s.queue = append(s.queue, ready{k: k, err: &TaskError{Task: t, Err: err}, id: waiter})
			return
		}
		s.queue = append(s.queue, ready{k: k, val: v, id: waiter})
	})
	return s.next()
}

// gatherState tracks one in-flight gather across its waiter closures.
type gatherState struct {
	left int
	dead bool
}

func (s *Scheduler) gather(op Gather, k *kontrol.K) kontrol.Expr {
	if len(op.Tasks) == 0 {
		return kontrol.Transfer{K: k, Value: []any{}}
	}
	for _, t := range op.Tasks {
		if t == nil || t.s != s {
			return kontrol.TransferError{K: k, Err: ErrUnknownTask}
		}
	}
	vals := make([]any, len(op.Tasks))
	g := &gatherState{}
	for i, t := range op.Tasks {
		if !t.done {
			g.left++
			continue
		}
		if t.err != nil {
			return kontrol.TransferError{K: k, Err: &TaskError{Task: t, Err: t.err}}
		}
		vals[i] = t.val
	}
	if g.left == 0 {
		return kontrol.Transfer{K: k, Value: vals}
	}
	if len(s.queue) == 0 {
		return kontrol.TransferError{K: k, Err: ErrDeadlock}
	}
	waiter := s.current
	for i, t := range op.Tasks {
		i, t := i, t
		if t.done {
			continue
		}
		t.waiters = append(t.waiters, func(v any, err error) {
			if g.dead {
				return
			}
			if err != nil {
				g.dead = true
				s.queue = append(s.queue, ready{k: k, err: &TaskError{Task: t, Err: err}, id: waiter})
				return
			}
			vals[i] = v
			if g.left--; g.left == 0 {
				g.dead = true
				s.queue = append(s.queue, ready{k: k, val: vals, id: waiter})
			}
		})
	}
	return s.next()
}

func (s *Scheduler) race(op Race, k *kontrol.K) kontrol.Expr {
	if len(op.Tasks) == 0 {
		return kontrol.TransferError{K: k, Err: ErrEmptyRace}
	}
	for _, t := range op.Tasks {
		if t == nil || t.s != s {
			return kontrol.TransferError{K: k, Err: ErrUnknownTask}
		}
	}
	// a task already settled wins outright, earliest argument first
	for _, t := range op.Tasks {
		if !t.done {
			continue
		}
		if t.err != nil {
			return kontrol.TransferError{K: k, Err: &TaskError{Task: t, Err: t.err}}
		}
		return kontrol.Transfer{K: k, Value: t.val}
	}
	if len(s.queue) == 0 {
		return kontrol.TransferError{K: k, Err: ErrDeadlock}
	}
	waiter := s.current
	rid := s.raceSeq
	s.raceSeq++
	for _, t := range op.Tasks {
		t := t
		t.waiters = append(t.waiters, func(v any, err error) {
			if !s.winners.Add(rid) {
				return
			}
			if err != nil {
				s.queue = append(s.queue, ready{k: k, err: &TaskError{Task: t, Err: err}, id: waiter})
				return
			}
			s.queue = append(s.queue, ready{k: k, val: v, id: waiter})
		})
	}
	return s.next()
}

// finish settles a completed task body and hands control to whatever
// runs next. The settlement perform never resumes.
func (s *Scheduler) finish(op taskDone, k *kontrol.K) kontrol.Expr {
	k.Discard()
	if t := s.tasks[op.id]; t != nil {
		t.settle(op.val, op.err)
		delete(s.tasks, op.id)
	}
	if op.id == mainID {
		s.mainSet = true
		s.mainVal, s.mainErr = op.val, op.err
	}
	return s.next()
}

// next transfers into the oldest runnable entry. With nothing runnable
// the run ends on main's settlement, or deadlocks.
func (s *Scheduler) next() kontrol.Expr {
	if len(s.queue) > 0 {
		r := s.queue[0]
		s.queue = s.queue[1:]
		s.current = r.id
		if r.err != nil {
			return kontrol.TransferError{K: r.k, Err: r.err}
		}
		return kontrol.Transfer{K: r.k, Value: r.val}
	}
	if s.mainSet {
		if s.mainErr != nil {
			return kontrol.FailOf(s.mainErr)
		}
		return kontrol.Pure{Value: s.mainVal}
	}
	return kontrol.FailOf(ErrDeadlock)
}
