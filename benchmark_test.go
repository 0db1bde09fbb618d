// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kontrol"
)

// BenchmarkRunPure measures the machine round trip for a pure value.
func BenchmarkRunPure(b *testing.B) {
	comp := kontrol.Pure{Value: 42}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkBindChain measures a chain of 10 binds.
func BenchmarkBindChain(b *testing.B) {
	inc := func(v any) kontrol.Expr { return kontrol.Pure{Value: v.(int) + 1} }
	chain := kontrol.Expr(kontrol.Pure{Value: 0})
	for i := 0; i < 10; i++ {
		chain = kontrol.Bind(chain, inc)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(chain)
	}
}

// BenchmarkThenChain measures a chain of 10 thens.
func BenchmarkThenChain(b *testing.B) {
	chain := kontrol.Expr(kontrol.Pure{Value: 0})
	for i := 0; i < 10; i++ {
		chain = kontrol.Then(chain, kontrol.Pure{Value: 42})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(chain)
	}
}

// BenchmarkMapChain measures a chain of 10 maps.
func BenchmarkMapChain(b *testing.B) {
	double := func(v any) any { return v.(int) * 2 }
	chain := kontrol.Expr(kontrol.Pure{Value: 1})
	for i := 0; i < 10; i++ {
		chain = kontrol.MapOf(chain, double)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(chain)
	}
}

// BenchmarkDispatchResume measures one dispatch round trip.
func BenchmarkDispatchResume(b *testing.B) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: 7}
	})
	comp := kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkDispatchTransfer measures the severing resolution path.
func BenchmarkDispatchTransfer(b *testing.B) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Transfer{K: k, Value: 7}
	})
	comp := kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkPassChain measures an effect handed outward through two
// declining handlers before being answered.
func BenchmarkPassChain(b *testing.B) {
	decline := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Pass{}
	})
	answer := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: 7}
	})
	comp := kontrol.Handle{Handler: answer,
		Body: kontrol.Handle{Handler: decline,
			Body: kontrol.Handle{Handler: decline, Body: kontrol.PerformOf(ping{})}}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkStateGetPut measures a Get/Put cycle through the state handler.
func BenchmarkStateGetPut(b *testing.B) {
	comp := kontrol.Bind(kontrol.PerformOf(kontrol.Get{Key: "n"}), func(v any) kontrol.Expr {
		return kontrol.Then(
			kontrol.PerformOf(kontrol.Put{Key: "n", Value: v.(int) + 1}),
			kontrol.PerformOf(kontrol.Get{Key: "n"}),
		)
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _ := kontrol.StateHandler("n", 0)
		_, _ = kontrol.Run(kontrol.Handle{Handler: h, Body: comp})
	}
}

// BenchmarkReaderAsk measures one environment lookup.
func BenchmarkReaderAsk(b *testing.B) {
	comp := kontrol.WithReader("env", 42, kontrol.PerformOf(kontrol.Ask{Key: "env"}))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkWriterTell measures a three-tell stream.
func BenchmarkWriterTell(b *testing.B) {
	comp := kontrol.Seq(
		kontrol.PerformOf(kontrol.Tell{Key: "log", Value: 1}),
		kontrol.PerformOf(kontrol.Tell{Key: "log", Value: 2}),
		kontrol.PerformOf(kontrol.Tell{Key: "log", Value: 3}),
	)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _ := kontrol.WriterHandler("log")
		_, _ = kontrol.Run(kontrol.Handle{Handler: h, Body: comp})
	}
}

// BenchmarkCallInvoke measures callable invocation with argument evaluation.
func BenchmarkCallInvoke(b *testing.B) {
	add := kontrol.Named("add", func(args []any, kwargs map[string]any) (kontrol.Expr, error) {
		return kontrol.Pure{Value: args[0].(int) + args[1].(int)}, nil
	})
	comp := kontrol.Call{
		Fn:   kontrol.Pure{Value: add},
		Args: []kontrol.Expr{kontrol.Pure{Value: 1}, kontrol.Pure{Value: 2}},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkCatchError measures raise plus innermost-catcher recovery.
func BenchmarkCatchError(b *testing.B) {
	boom := errors.New("boom")
	comp := kontrol.Handle{
		Handler: &catcher{fn: func(err error) (kontrol.Expr, bool) {
			return kontrol.Pure{Value: 0}, true
		}},
		Body: kontrol.FailOf(boom),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kontrol.Run(comp)
	}
}

// BenchmarkMachineStep measures explicit stepping to completion.
func BenchmarkMachineStep(b *testing.B) {
	inc := func(v any) kontrol.Expr { return kontrol.Pure{Value: v.(int) + 1} }
	comp := kontrol.Bind(kontrol.Pure{Value: 0}, inc)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := kontrol.NewMachine(comp, kontrol.Config{})
		for m.Step() == kontrol.Continue {
		}
	}
}

// BenchmarkTraceOverhead measures a dispatch round trip with a recorder
// attached.
func BenchmarkTraceOverhead(b *testing.B) {
	h := kontrol.HandlerFunc(func(e kontrol.Effect, k *kontrol.K) kontrol.Expr {
		return kontrol.Resume{K: k, Value: 7}
	})
	comp := kontrol.Handle{Handler: h, Body: kontrol.PerformOf(ping{})}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := kontrol.NewMachine(comp, kontrol.Config{Trace: &kontrol.Recorder{}})
		_, _ = m.Run()
	}
}
