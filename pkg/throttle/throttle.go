package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultMinInterval は、同一スコープに対するリクエスト間隔の
	// デフォルト最小値です。
	DefaultMinInterval = 1000 * time.Millisecond
	// DefaultMaxJitter は、同期バーストを避けるために間隔へ加算される
	// ランダムジッターのデフォルト上限です。
	DefaultMaxJitter = 2000 * time.Millisecond
)

// Throttle は、スコープ（通常はホスト名）ごとの最小リクエスト間隔を保証します。
// 内部状態は「次に許可される時刻」のウォーターマークのみであり、その更新が
// 唯一の直列化ポイントです。ロックは待機中には保持されないため、あるスコープの
// 待機が他のスコープの取得をブロックすることはありません。
type Throttle struct {
	mu          sync.Mutex
	nextAllowed map[string]time.Time
	minInterval time.Duration
	maxJitter   time.Duration
	rng         *rand.Rand
	now         func() time.Time
}

// New は、新しい Throttle を初期化します。
// minInterval が0以下の場合はデフォルト値が適用されます。
func New(minInterval, maxJitter time.Duration) *Throttle {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if maxJitter < 0 {
		maxJitter = 0
	}
	return &Throttle{
		nextAllowed: make(map[string]time.Time),
		minInterval: minInterval,
		maxJitter:   maxJitter,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Acquire は、指定スコープへのリクエストが許可されるまでブロックします。
// 許可された2つのリクエストの間隔は常に minInterval 以上であることが
// 保証されます。コンテキストがキャンセルされた場合のみエラーを返します。
func (t *Throttle) Acquire(ctx context.Context, scope string) error {
	t.mu.Lock()
	now := t.now()

	next, ok := t.nextAllowed[scope]
	if !ok || next.Before(now) {
		next = now
	}
	wait := next.Sub(now)

	// ウォーターマークを先に進めてからロックを解放する。
	// 待機そのものはロックの外で行うため、取得は直列化ポイントであって
	// リクエスト期間中保持されるロックではない。
	interval := t.minInterval
	if t.maxJitter > 0 {
		interval += time.Duration(t.rng.Int63n(int64(t.maxJitter)))
	}
	t.nextAllowed[scope] = next.Add(interval)
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
