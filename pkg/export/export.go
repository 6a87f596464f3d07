package export

import (
	"fmt"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// Writer は、確定済みのレコード集合を永続化する機能のインターフェースです。
// パイプラインはこの抽象にのみ依存し、物理フォーマットには関与しません。
type Writer interface {
	Write(records []types.CandidateRecord) error
}

// MultiWriter は、複数の Writer へ同一のレコード集合を書き出します。
// いずれかの書き出しが失敗しても残りの Writer は実行され、
// 発生したエラーは結合して返されます。
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter は、新しい MultiWriter を生成します。
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write は、すべての内包 Writer へレコードを書き出します。
func (m *MultiWriter) Write(records []types.CandidateRecord) error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Write(records); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("レコードの書き出しに失敗しました: %w", err)
		}
	}
	return firstErr
}
