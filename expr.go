// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "fmt"

// Expr is the universal expression type flowing through the machine.
// An Expr in evaluation position must be a control node implementing [Ctrl];
// an [Effect] becomes evaluable only when wrapped in [Perform]. Stepping any
// other value is a hard error ([*BadExprError]) rather than a fallback path,
// so malformed programs fail at the point of the mistake.
type Expr = any

// Ctrl is the interface for control nodes.
// Classification uses type switches, not tags; Ctrl is a pure marker
// interface, and only nodes defined in this package implement it.
type Ctrl interface {
	ctrl() // unexported marker method
}

// Pure lifts a plain value into evaluation position.
// The machine delivers the value directly; no frame is allocated.
type Pure struct {
	// Value is the result of this node. It is delivered as-is, without
	// further classification, so Pure also shields values that happen to
	// implement [Effect] from dispatch.
	Value any
}

func (Pure) ctrl() {}

// Kwarg is a single keyword argument of a [Call]. Keyword arguments keep
// their written order so argument evaluation is deterministic.
type Kwarg struct {
	Name  string
	Value Expr
}

// CallMeta carries call-site metadata for a [Call] frame. It is recorded on
// the frame the call pushes and reported by [GetCallStack]; the machine
// itself never interprets it.
type CallMeta struct {
	// Func is the name of the called function.
	Func string

	// File and Line locate the call site in host source.
	File string
	Line int

	// Ref is an opaque host reference carried through unchanged.
	Ref any
}

// String renders the entry as "Func (File:Line)", or just the function
// name when no source location is known.
func (m CallMeta) String() string {
	if m.File == "" {
		return m.Func
	}
	return fmt.Sprintf("%s (%s:%d)", m.Func, m.File, m.Line)
}

// Call applies a [Callable] to arguments. Fn is evaluated first, then each
// positional argument, then each keyword argument, sequentially left to
// right; each position is itself an [Expr]. The invocation result is
// evaluated as the call's body in a frame tagged with Meta.
//
// Argument positions classify like any other expression: an effect is
// resolved before invocation when written [Perform] and passed through as
// data when written [Pure]. A bare effect argument is a [*BadExprError].
//
// Any alternative argument strategy (concurrent resolution, laziness) is
// built above the machine by pre-resolving arguments into [Pure] nodes.
type Call struct {
	// Fn evaluates to the [Callable] to invoke.
	Fn Expr

	// Args are the positional arguments.
	Args []Expr

	// Kwargs are the keyword arguments, evaluated after Args.
	Kwargs []Kwarg

	// Meta is optional call-site metadata. When nil, a minimal entry is
	// synthesized from the callable's name.
	Meta *CallMeta
}

func (Call) ctrl() {}

// Eval evaluates Expr under a freshly scoped handler stack equal to
// Handlers, independent of the ambient stack. Dispatch inside the scope
// sees exactly Handlers; raised errors still propagate out normally.
type Eval struct {
	// Expr is the expression to evaluate.
	Expr Expr

	// Handlers is the scope's handler stack, outermost first.
	Handlers []Handler
}

func (Eval) ctrl() {}

// Map evaluates Source and applies F to its result. The output of F is
// delivered as a value, not re-evaluated. No frame is allocated.
type Map struct {
	// Source is the subexpression producing the input value.
	Source Expr

	// F transforms the result. Must not be nil.
	F func(any) any
}

func (Map) ctrl() {}

// FlatMap evaluates Source and feeds its result to F; the expression F
// returns is evaluated in turn. No frame is allocated.
type FlatMap struct {
	// Source is the subexpression producing the input value.
	Source Expr

	// F produces the rest of the computation. Must not be nil.
	F func(any) Expr
}

func (FlatMap) ctrl() {}

// Handle installs Handler for the dynamic extent of Body. Effects performed
// in Body are offered to Handler before any handler installed outside; the
// scope ends when Body completes or fails.
type Handle struct {
	// Handler receives effects performed in Body. Must not be nil.
	Handler Handler

	// Body is the expression evaluated under the handler.
	Body Expr
}

func (Handle) ctrl() {}

// Perform requests an effect from the installed handlers. The computation
// suspends, the continuation is captured as a one-shot [K], and the pair is
// offered to the most recently installed visible handler first.
type Perform struct {
	// Effect is the effect to request. Must not be nil.
	Effect Effect
}

func (Perform) ctrl() {}

// Resume consumes K and continues its suspended computation with Value.
// The resumed scope's caller chain is attached to the resuming computation,
// so when the scope completes its result is delivered right here: Resume in
// a handler reply makes the reply's remainder observe the final result of
// the scope the handler delimits.
type Resume struct {
	// K is the continuation to consume.
	K *K

	// Value is delivered at the suspension point.
	Value any
}

func (Resume) ctrl() {}

// ResumeError consumes K and raises Err at its suspension point, as if the
// suspended operation itself had failed. Catchers inside the resumed scope
// see the error first.
type ResumeError struct {
	K   *K
	Err error
}

func (ResumeError) ctrl() {}

// Transfer consumes K and continues its suspended computation with Value,
// severing the target's caller chain: the target runs as if freshly rooted
// and control never returns to the transferring computation. Schedulers
// switch tasks this way so segment chains stay flat across thousands of
// switches.
type Transfer struct {
	// K is the continuation to consume.
	K *K

	// Value is delivered at the suspension point.
	Value any
}

func (Transfer) ctrl() {}

// TransferError is [Transfer] with an error delivered in place of a value.
type TransferError struct {
	K   *K
	Err error
}

func (TransferError) ctrl() {}

// Delegate re-offers the current dispatch's effect to the remaining outer
// handlers. The delegating handler suspends at the Delegate node and
// receives the eventual result there, keeping its reply running. A non-nil
// Effect replaces the effect offered outward.
//
// Delegate is valid only in a handler reply whose continuation is still
// unconsumed; elsewhere it is a [*BadExprError].
type Delegate struct {
	Effect Effect
}

func (Delegate) ctrl() {}

// Pass declines the current dispatch: the remaining outer handlers are
// offered the effect directly and the passing handler never observes a
// result. A non-nil Effect replaces the effect offered outward.
//
// Pass is valid only in a handler reply whose continuation is still
// unconsumed; elsewhere it is a [*BadExprError].
type Pass struct {
	Effect Effect
}

func (Pass) ctrl() {}

// GetHandlers evaluates to the visible handler stack at the current point
// as a []Handler, innermost first. Pure structural query; no dispatch.
type GetHandlers struct{}

func (GetHandlers) ctrl() {}

// GetCallStack evaluates to the active call metadata as a []CallMeta,
// innermost first. Frames without metadata are omitted.
type GetCallStack struct{}

func (GetCallStack) ctrl() {}

// GetContinuation evaluates to an inspection-only [K] describing the
// current point. The handle supports [K.CallStack] but cannot be consumed;
// resuming it is a [*BadExprError]. The computation does not suspend.
type GetContinuation struct{}

func (GetContinuation) ctrl() {}

// CreateContinuation packages Expr and a handler stack as an unstarted
// one-shot [K] without evaluating anything. The packaged computation is
// sealed: dispatch inside it sees exactly Handlers, outermost first.
// Starting the continuation consumes it.
type CreateContinuation struct {
	// Expr is the computation to package.
	Expr Expr

	// Handlers is the packaged scope's handler stack, outermost first.
	Handlers []Handler
}

func (CreateContinuation) ctrl() {}

// ResumeContinuation consumes K and continues it with Value from ordinary
// computation code. An unstarted continuation is started (Value is ignored);
// a suspended one resumes exactly as [Resume]. The node evaluates to the
// final result of the continuation's scope.
type ResumeContinuation struct {
	K     *K
	Value any
}

func (ResumeContinuation) ctrl() {}

// Async suspends the whole machine until host code completes the captured
// continuation. Start is invoked once with the continuation and must
// arrange for exactly one [K.Complete] (or [K.Discard]), from any
// goroutine; the Async node then evaluates to the completion value at the
// suspension point. While the completion is outstanding the machine
// reports [Blocked].
type Async struct {
	// Start receives the captured continuation. It must not complete it
	// twice, and must not panic after completing it.
	Start func(k *K)
}

func (Async) ctrl() {}

// Fail raises Err at the current point. The error unwinds through enclosing
// scopes, consulting [ErrorCatcher] handlers innermost first, and terminates
// the run as [Failed] if nothing catches it.
type Fail struct {
	// Err is the error to raise. Must not be nil.
	Err error
}

func (Fail) ctrl() {}

// --- constructors ---

// Bind sequences source into f, the free-monad bind.
func Bind(source Expr, f func(any) Expr) Expr {
	return FlatMap{Source: source, F: f}
}

// MapOf applies a plain function to the result of source.
func MapOf(source Expr, f func(any) any) Expr {
	return Map{Source: source, F: f}
}

// Then sequences two expressions, discarding the first result.
func Then(first, second Expr) Expr {
	return FlatMap{Source: first, F: func(any) Expr { return second }}
}

// Seq sequences expressions left to right, evaluating to the last one.
// Seq of nothing evaluates to nil.
func Seq(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return Pure{}
	}
	e := exprs[len(exprs)-1]
	for i := len(exprs) - 2; i >= 0; i-- {
		e = Then(exprs[i], e)
	}
	return e
}

// PerformOf wraps an effect for evaluation.
func PerformOf(e Effect) Expr {
	return Perform{Effect: e}
}

// FailOf raises err.
func FailOf(err error) Expr {
	return Fail{Err: err}
}

// NewCall builds a Call of fn applied to positional arguments.
// Each argument must already be an [Expr]; plain values belong in [Pure].
func NewCall(fn Expr, args ...Expr) Call {
	return Call{Fn: fn, Args: args}
}
