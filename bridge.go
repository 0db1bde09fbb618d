// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "runtime/debug"

// Host-code boundary. Every closure the machine runs on behalf of a
// program crosses one of these wrappers, so a panic in user code becomes
// a [*PanicError] raised at the point the closure was applied instead of
// tearing down the stepping goroutine.

func capturePanic(perr *error) {
	if r := recover(); r != nil {
		*perr = &PanicError{Value: r, Stack: debug.Stack()}
	}
}

func (m *Machine) applyBind(f func(any) Expr, v any) (e Expr, perr error) {
	defer capturePanic(&perr)
	return f(v), nil
}

func (m *Machine) applyMap(f func(any) any, v any) (r any, perr error) {
	defer capturePanic(&perr)
	return f(v), nil
}

func (m *Machine) invokeCallable(fn Callable, args []any, kwargs map[string]any) (e Expr, perr error) {
	defer capturePanic(&perr)
	e, err := fn.Invoke(args, kwargs)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (m *Machine) invokeHandler(h Handler, e Effect, k *K) (reply Expr, perr error) {
	defer capturePanic(&perr)
	return h.Handle(e, k), nil
}

func (m *Machine) applyCatch(c ErrorCatcher, err error) (rec Expr, caught bool, perr error) {
	defer capturePanic(&perr)
	rec, caught = c.CatchError(err)
	return rec, caught, nil
}

func (m *Machine) runStart(start func(*K), k *K) (perr error) {
	defer capturePanic(&perr)
	start(k)
	return nil
}
