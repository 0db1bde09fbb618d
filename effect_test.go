// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kontrol"
)

// get is a payload-carrying effect for handler tests.
type get struct{ key string }

func (get) EffectName() string { return "test.get" }

func TestHandlerResumes(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: 7}
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})})
	if v != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestHandlerCalledPerPerform(t *testing.T) {
	// Bind(Perform(ping), x -> Bind(Perform(ping), y -> x+y))
	calls := 0
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		calls++
		return kontrol.Resume{K: k, Value: calls * 10}
	})
	comp := kontrol.Bind(kontrol.PerformOf(ping{}), func(x any) kontrol.Expr {
		return kontrol.Bind(kontrol.PerformOf(ping{}), func(y any) kontrol.Expr {
			return kontrol.Pure{Value: x.(int) + y.(int)}
		})
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: comp})
	if v != 30 {
		t.Fatalf("got %v, want 30 (10 + 20)", v)
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2", calls)
	}
}

func TestHandlerSeesEffectPayload(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		g, ok := e.(get)
		if !ok {
			return kontrol.Pass{}
		}
		return kontrol.Resume{K: k, Value: "value of " + g.key}
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(get{key: "host"})})
	if v != "value of host" {
		t.Fatalf("got %v, want value of host", v)
	}
}

func TestHandlerAbortsWithPlainValue(t *testing.T) {
	resumed := false
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return "aborted" // not a control node: the scope finishes with this value
	})
	body := kontrol.Bind(kontrol.PerformOf(ping{}), func(v any) kontrol.Expr {
		resumed = true
		return kontrol.Pure{Value: v}
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: body})
	if v != "aborted" {
		t.Fatalf("got %v, want aborted", v)
	}
	if resumed {
		t.Fatal("perform site resumed after abort")
	}
}

func TestHandlerAbortsWithNil(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return nil
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})})
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestHandlerShadowing(t *testing.T) {
	outer := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: "outer"}
	})
	inner := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: "inner"}
	})
	comp := kontrol.Handle{
		Handler: outer,
		Body:    kontrol.Handle{Handler: inner, Body: kontrol.PerformOf(ping{})},
	}
	if v := runVal(t, comp); v != "inner" {
		t.Fatalf("got %v, want inner", v)
	}
}

func TestHandlerPassReachesOuter(t *testing.T) {
	outer := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: "outer"}
	})
	inner := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Pass{}
	})
	comp := kontrol.Handle{
		Handler: outer,
		Body:    kontrol.Handle{Handler: inner, Body: kontrol.PerformOf(ping{})},
	}
	if v := runVal(t, comp); v != "outer" {
		t.Fatalf("got %v, want outer", v)
	}
}

func TestHandlerReplyBareEffectIsError(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return ping{} // bare effect, must be wrapped in Perform
	})
	err := runErr(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})})
	var bad *kontrol.BadExprError
	if !errors.As(err, &bad) {
		t.Fatalf("got %T, want *BadExprError", err)
	}
}

func TestHandleNilHandlerIsError(t *testing.T) {
	err := runErr(t, kontrol.Handle{Body: kontrol.Pure{Value: 1}})
	var bad *kontrol.BadExprError
	if !errors.As(err, &bad) {
		t.Fatalf("got %T, want *BadExprError", err)
	}
}

func TestHandlerBodyValuePassesThrough(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		panic("should not be called")
	})
	v := runVal(t, kontrol.Handle{Handler: h, Body: kontrol.Pure{Value: "quiet"}})
	if v != "quiet" {
		t.Fatalf("got %v, want quiet", v)
	}
}

func TestHandlerPanicBecomesError(t *testing.T) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		panic("handler down")
	})
	err := runErr(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})})
	var pe *kontrol.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("got %T, want *PanicError", err)
	}
	if pe.Value != "handler down" {
		t.Fatalf("got panic value %v, want handler down", pe.Value)
	}
}

func TestHandlerErrorReplyPropagates(t *testing.T) {
	boom := errors.New("boom")
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		k.Discard()
		return kontrol.FailOf(boom)
	})
	err := runErr(t, kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}
