package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shouni/go-listing-scout/pkg/types"
)

const (
	// リトライ関連の定数
	DefaultMaxAttempts = 3 // 初回を除く最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// Decision は、失敗したリクエスト1件に対するリトライ判定の結果です。
// Retry が true の場合、Delay 経過後にキューへ再投入すべきことを示します。
// Retry が false の場合は終端失敗（GiveUp）です。
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy は、エラー分類と試行回数からリトライ可否と待機時間を決定します。
// ワーカーをその場でスリープさせる代わりに判定結果のみを返すため、
// 待機中もワーカースロットは解放されたままになります。
type Policy struct {
	cfg Config
}

// NewPolicy は、新しい Policy を初期化します。
// 設定値が不正な場合はデフォルト値で補正します。
func NewPolicy(cfg Config) *Policy {
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = InitialBackoffInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = MaxBackoffInterval
	}
	return &Policy{cfg: cfg}
}

// MaxAttempts は、設定されたリトライ上限を返します。
func (p *Policy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}

// Decide は、attempt 回目（0始まり）の失敗に対する判定を返します。
// 恒久エラーは回数にかかわらず GiveUp、一時的エラーは上限到達まで
// ジッター付き指数バックオフの遅延でリトライします。
func (p *Policy) Decide(attempt int, kind types.ErrorKind) Decision {
	if kind == types.ErrorKindPermanent {
		return Decision{Retry: false}
	}
	if attempt+1 >= p.cfg.MaxAttempts {
		return Decision{Retry: false}
	}
	return Decision{Retry: true, Delay: p.backoffDelay(attempt)}
}

// backoffDelay は、attempt 回目の失敗に対する待機時間を計算します。
// backoff.ExponentialBackOff を attempt+1 回進めることで、試行回数を
// シードとした指数的増加とランダム化（リトライストームの分散）を得ます。
func (p *Policy) backoffDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialInterval
	b.MaxInterval = p.cfg.MaxInterval
	b.MaxElapsedTime = 0 // 経過時間では打ち切らない（回数で打ち切る）
	b.Reset()

	delay := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop || delay < 0 {
		delay = p.cfg.MaxInterval
	}
	return delay
}
