// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontrol

import "fmt"

// Ask reads the environment named Key.
type Ask struct{ Key string }

func (Ask) EffectName() string { return "reader.ask" }

type readerHandler struct {
	key string
	env any
}

// ReaderHandler makes a handler answering [Ask] for one keyed read-only
// environment.
func ReaderHandler(key string, env any) Handler {
	return &readerHandler{key: key, env: env}
}

func (h *readerHandler) Handle(e Effect, k *K) Expr {
	if op, ok := e.(Ask); ok && op.Key == h.key {
		return Resume{K: k, Value: h.env}
	}
	return Pass{}
}

func (h *readerHandler) HandlerName() string {
	return fmt.Sprintf("reader(%s)", h.key)
}

// WithReader runs body with env installed under key.
func WithReader(key string, env any, body Expr) Expr {
	return Handle{Handler: ReaderHandler(key, env), Body: body}
}
