package apiclient

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Alerter はユーザーに見えるメッセージを通知します。
type Alerter interface {
	Alert(msg string)
}

// AlertFunc は関数を Alerter として扱うためのアダプタです。
type AlertFunc func(msg string)

// Alert は f(msg) を呼び出します。
func (f AlertFunc) Alert(msg string) {
	f(msg)
}

type writerAlerter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterAlerter は w に 1 行ずつメッセージを書き出す Alerter を返します。
// w が nil の場合は標準エラー出力を使います。
func NewWriterAlerter(w io.Writer) Alerter {
	if w == nil {
		w = os.Stderr
	}
	return &writerAlerter{w: w}
}

func (a *writerAlerter) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(a.w, msg)
}
