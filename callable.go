// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

// Callable is the contract for [Call] targets supplied by the host driver.
// Invoke receives fully evaluated arguments and returns the call's body
// expression, which the machine evaluates in the call's frame. A returned
// error is raised at the call site; a panic is captured as [*PanicError].
type Callable interface {
	// CallableName identifies the callable in synthesized call metadata.
	CallableName() string

	// Invoke applies the callable. kwargs is nil when the call has no
	// keyword arguments.
	Invoke(args []any, kwargs map[string]any) (Expr, error)
}

// CallableFunc adapts a plain function to [Callable] with the generic name
// "func". Use [Named] when call stacks should carry a real name.
type CallableFunc func(args []any, kwargs map[string]any) (Expr, error)

// CallableName implements [Callable].
func (CallableFunc) CallableName() string { return "func" }

// Invoke implements [Callable].
func (f CallableFunc) Invoke(args []any, kwargs map[string]any) (Expr, error) {
	return f(args, kwargs)
}

type namedCallable struct {
	name string
	f    CallableFunc
}

func (c *namedCallable) CallableName() string { return c.name }

func (c *namedCallable) Invoke(args []any, kwargs map[string]any) (Expr, error) {
	return c.f(args, kwargs)
}

// Named wraps f as a [Callable] carrying name, so frames pushed by calls to
// it reconstruct human-meaningful call stacks.
func Named(name string, f CallableFunc) Callable {
	return &namedCallable{name: name, f: f}
}
