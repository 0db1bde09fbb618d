// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kontrol provides an effect-handler virtual machine in Go.
//
// The core type [Machine] evaluates control expressions one step at a time.
// Computations request effects; installed [Handler] values decide how each
// effect proceeds: resume the suspended computation, transfer control
// elsewhere, delegate to an outer handler, or abandon the computation
// entirely. Captured continuations are first-class [K] values with one-shot
// semantics.
//
// # Design Philosophy
//
// kontrol provides:
//   - A small defunctionalized expression grammar evaluated by an iterative loop
//   - Deep handlers with re-entrant dispatch over a full handler snapshot
//   - One-shot continuations with explicit errors on reuse
//   - A cooperative task scheduler built entirely from the handler interface
//
// # Expression Grammar
//
// An [Expr] in evaluation position must be either a control node (a value
// implementing the [Ctrl] marker) or an [Effect] wrapped in [Perform].
// There is no third kind and no fallback: stepping a plain value or a bare
// effect yields [*BadExprError]. Plain values enter computations through
// [Pure] nodes and leave them through handler replies and [Resume] values.
// The control nodes:
//
//   - [Pure]: Lift a plain value (used where an explicit node is needed)
//   - [Call]: Apply a [Callable] to positional and keyword arguments
//   - [Eval]: Evaluate a subexpression under a sealed handler stack
//   - [Map]: Apply a plain function to the result of a subexpression
//   - [FlatMap]: Sequence a subexpression into an expression-producing function
//   - [Handle]: Install a handler for the dynamic extent of a body
//   - [Perform]: Request an [Effect] from the installed handlers
//   - [Fail]: Raise an error through the handler stack
//
// Convenience constructors build the common shapes:
//
//   - [Bind], [MapOf], [Then], [Seq]: Sequencing helpers
//   - [PerformOf], [FailOf], [NewCall]: Node helpers
//
// # Effects and Handlers
//
// An [Effect] is any value with an EffectName. [Perform] suspends the
// computation, captures the continuation as a [K], and offers the pair to
// the innermost installed handler first. A [Handler] replies with an
// ordinary [Expr]; control nodes give the reply its meaning:
//
//   - [Resume]: Continue the suspended computation with a value
//   - [ResumeError]: Continue the suspended computation with an error
//   - [Transfer]: Continue the suspended computation, discarding the handler's own context
//   - [TransferError]: Transfer with an error
//   - [Delegate]: Re-offer the effect to the next outer handler, then regain control
//   - [Pass]: Decline; the next outer handler is offered the effect directly
//
// A handler reply that is none of the above aborts the suspended
// computation: a plain value becomes the result of the handler's [Handle]
// scope, and an error raised during the reply unwinds through it.
//
//   - [Handler]: The dispatch interface
//   - [HandlerFunc]: Adapter for plain functions
//   - [ErrorCatcher]: Optional interface for intercepting raised errors
//
// # Introspection
//
// Computations can observe the machine without suspending:
//
//   - [GetHandlers]: The visible handler stack, innermost first
//   - [GetCallStack]: Call metadata for active [Call] frames
//   - [GetContinuation]: An inspection handle on the current continuation
//
// # First-Class Continuations
//
// [CreateContinuation] packages an expression and a handler stack as an
// unstarted [K] without running it. [ResumeContinuation] starts or resumes
// any held K from ordinary computation code. Each K may be consumed at most
// once; a second use yields [*ReusedContinuationError]. [K.Complete] injects
// a completion from outside the machine, for host callbacks.
//
// # Asynchrony
//
// [Async] suspends the whole machine and hands the captured K to host
// code, which calls [K.Complete] from any goroutine. [Machine.Step]
// reports [Blocked] while nothing is runnable; [Machine.Run] parks until a
// completion arrives. Completions are serialized and delivered one per
// step.
//
// # Standard Effects
//
// State effect for mutable state threading:
//
//   - [Get], [Put], [Modify]: Effect operations, keyed by cell name
//   - [StateHandler]: Creates a state handler and a final-value getter
//   - [WithState]: Install a state handler around a body
//
// Reader effect for a read-only environment:
//
//   - [Ask]: Effect operation, keyed by environment name
//   - [ReaderHandler]: Creates a reader handler
//   - [WithReader]: Install a reader handler around a body
//
// Writer effect for accumulating output:
//
//   - [Tell]: Effect operation, keyed by stream name
//   - [WriterHandler]: Creates a writer handler and a log getter
//   - [WithWriter]: Install a writer handler around a body
//
// # Resource Safety
//
//   - [Bracket]: Acquire-release-use with guaranteed release
//   - [OnError]: Run cleanup only when the body raises
//
// # Running
//
//   - [Machine.Step]: Advance by one transition, reporting a [Status]
//   - [Machine.Run]: Step to completion, parking while [Blocked]
//   - [Run]: One-call construction and execution
//
// Step reports [Continue] while work remains, [Blocked] while only host
// callbacks can make progress, and [Done] or [Failed] at the end. A machine
// that can never progress again fails with [ErrStalled].
//
// # Tracing
//
// A [TraceSink] receives an [Event] at each dispatch, resumption, transfer,
// abort, and abandonment, paired by continuation id. [Recorder] is the
// slice-backed sink used throughout the tests.
//
// # Example
//
//	type ask struct{}
//	func (ask) EffectName() string { return "ask" }
//
//	comp := kontrol.Handle{
//		Handler: kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
//			if _, ok := e.(ask); ok {
//				return kontrol.Resume{K: k, Value: 21}
//			}
//			return kontrol.Pass{}
//		}),
//		Body: kontrol.Bind(kontrol.PerformOf(ask{}), func(v any) kontrol.Expr {
//			return kontrol.Pure{Value: v.(int) * 2}
//		}),
//	}
//
//	v, err := kontrol.Run(comp)
//	// v == 42, err == nil
package kontrol
