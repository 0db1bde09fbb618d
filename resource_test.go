// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kontrol"
)

func TestBracketSuccess(t *testing.T) {
	var order []string
	comp := kontrol.Bracket(
		kontrol.Bind(kontrol.Pure{Value: 42}, func(v any) kontrol.Expr {
			order = append(order, "acquire")
			return kontrol.Pure{Value: v}
		}),
		func(r any) kontrol.Expr {
			order = append(order, "use")
			return kontrol.Pure{Value: r.(int) * 2}
		},
		func(r any) kontrol.Expr {
			order = append(order, "release")
			return kontrol.Pure{Value: nil}
		},
	)
	v := runVal(t, comp)
	if v != 84 {
		t.Fatalf("got %v, want 84", v)
	}
	if len(order) != 3 || order[0] != "acquire" || order[1] != "use" || order[2] != "release" {
		t.Fatalf("got order %v, want [acquire use release]", order)
	}
}

func TestBracketReleasesOnError(t *testing.T) {
	boom := errors.New("intentional")
	released := 0
	comp := kontrol.Bracket(
		kontrol.Pure{Value: "res"},
		func(r any) kontrol.Expr { return kontrol.FailOf(boom) },
		func(r any) kontrol.Expr {
			released++
			return kontrol.Pure{Value: nil}
		},
	)
	err := runErr(t, comp)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if released != 1 {
		t.Fatalf("release ran %d times, want 1", released)
	}
}

func TestBracketReleaseOnce(t *testing.T) {
	released := 0
	comp := kontrol.Bracket(
		kontrol.Pure{Value: "res"},
		func(r any) kontrol.Expr { return kontrol.Pure{Value: "ok"} },
		func(r any) kontrol.Expr {
			released++
			return kontrol.Pure{Value: nil}
		},
	)
	if v := runVal(t, comp); v != "ok" {
		t.Fatalf("got %v, want ok", v)
	}
	if released != 1 {
		t.Fatalf("release ran %d times, want 1", released)
	}
}

func TestBracketReleaseSeesResource(t *testing.T) {
	var got any
	comp := kontrol.Bracket(
		kontrol.Pure{Value: "handle-7"},
		func(r any) kontrol.Expr { return kontrol.Pure{Value: r} },
		func(r any) kontrol.Expr {
			got = r
			return kontrol.Pure{Value: nil}
		},
	)
	runVal(t, comp)
	if got != "handle-7" {
		t.Fatalf("release saw %v, want handle-7", got)
	}
}

func TestOnErrorRunsOnError(t *testing.T) {
	boom := errors.New("boom")
	cleaned := false
	comp := kontrol.OnError(kontrol.FailOf(boom), func() kontrol.Expr {
		cleaned = true
		return kontrol.Pure{Value: nil}
	})
	err := runErr(t, comp)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if !cleaned {
		t.Fatal("cleanup not run on error")
	}
}

func TestOnErrorSkippedOnSuccess(t *testing.T) {
	cleaned := false
	comp := kontrol.OnError(kontrol.Pure{Value: 42}, func() kontrol.Expr {
		cleaned = true
		return kontrol.Pure{Value: nil}
	})
	if v := runVal(t, comp); v != 42 {
		t.Fatalf("got %v, want 42", v)
	}
	if cleaned {
		t.Fatal("cleanup ran on success")
	}
}

func TestOnErrorCleanupFailureReplacesError(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	comp := kontrol.OnError(kontrol.FailOf(first), func() kontrol.Expr {
		return kontrol.FailOf(second)
	})
	err := runErr(t, comp)
	if !errors.Is(err, second) {
		t.Fatalf("got %v, want %v", err, second)
	}
	if errors.Is(err, first) {
		t.Fatalf("original error still attached: %v", err)
	}
}

func TestOnErrorEffectsPassThrough(t *testing.T) {
	// the guard is transparent to effects performed inside its scope
	comp := kontrol.WithReader("env", "visible",
		kontrol.OnError(kontrol.PerformOf(kontrol.Ask{Key: "env"}), func() kontrol.Expr {
			t.Fatal("cleanup ran without an error")
			return nil
		}),
	)
	if v := runVal(t, comp); v != "visible" {
		t.Fatalf("got %v, want visible", v)
	}
}

func TestBracketNestedReleaseOrder(t *testing.T) {
	var order []string
	open := func(name string) kontrol.Expr {
		return kontrol.Bind(kontrol.Pure{Value: name}, func(v any) kontrol.Expr {
			order = append(order, "open "+name)
			return kontrol.Pure{Value: v}
		})
	}
	closeFn := func(r any) kontrol.Expr {
		order = append(order, "close "+r.(string))
		return kontrol.Pure{Value: nil}
	}
	comp := kontrol.Bracket(open("outer"), func(outer any) kontrol.Expr {
		return kontrol.Bracket(open("inner"), func(inner any) kontrol.Expr {
			return kontrol.Pure{Value: outer.(string) + "+" + inner.(string)}
		}, closeFn)
	}, closeFn)
	if v := runVal(t, comp); v != "outer+inner" {
		t.Fatalf("got %v, want outer+inner", v)
	}
	want := []string{"open outer", "open inner", "close inner", "close outer"}
	if len(order) != 4 {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
