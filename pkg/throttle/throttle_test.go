package throttle_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-listing-scout/pkg/throttle"
)

// TestAcquireSpacing は、並列アクセス下でも同一スコープへの許可間隔が
// 最小間隔を下回らないことを検証します。
// NOTE: 許可時刻の観測には time.Now を使うため、スケジューリング遅延を
// 考慮したわずかな許容幅を設けています。
func TestAcquireSpacing(t *testing.T) {
	const (
		minInterval = 60 * time.Millisecond
		workers     = 4
		perWorker   = 2
		tolerance   = 10 * time.Millisecond
	)

	th := throttle.New(minInterval, 0) // ジッターなしで間隔のみ検証
	ctx := context.Background()

	var mu sync.Mutex
	var acquired []time.Time

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				require.NoError(t, th.Acquire(ctx, "www.example.com"))
				mu.Lock()
				acquired = append(acquired, time.Now())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, acquired, workers*perWorker)
	sort.Slice(acquired, func(i, j int) bool { return acquired[i].Before(acquired[j]) })

	for i := 1; i < len(acquired); i++ {
		gap := acquired[i].Sub(acquired[i-1])
		assert.GreaterOrEqual(t, gap, minInterval-tolerance,
			"許可間隔が最小間隔を下回っています (i=%d, gap=%s)", i, gap)
	}
}

// TestAcquireScopesIndependent は、異なるスコープの取得が互いに
// ブロックしないことを検証します。
func TestAcquireScopesIndependent(t *testing.T) {
	th := throttle.New(200*time.Millisecond, 0)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, th.Acquire(ctx, "a.example.com"))
	require.NoError(t, th.Acquire(ctx, "b.example.com"))
	require.NoError(t, th.Acquire(ctx, "c.example.com"))

	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"初回取得はスコープごとに待機なしで許可されること")
}

// TestAcquireCancel は、待機中のキャンセルがエラーとして返ることを検証します。
func TestAcquireCancel(t *testing.T) {
	th := throttle.New(1*time.Second, 0)

	// 1回目は即時許可され、ウォーターマークが進む
	require.NoError(t, th.Acquire(context.Background(), "www.example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := th.Acquire(ctx, "www.example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
