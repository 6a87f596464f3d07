package fetch

import (
	"sync"
	"time"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// Queue は、ワーカー間で共有されるスレッドセーフなFIFOワークキューです。
//
// 完了判定は「受理済みかつ未終端のアイテム数 (pending)」の会計で行います。
// Push で受理されたアイテムは、終端結果（成功または GiveUp 失敗）が処理
// された時点で Done が1回だけ呼ばれ、pending が0になった瞬間にキューは
// 完了状態となり、Pop はブロックを解いて false を返します。
//
// リトライの再投入 (Resubmit) は pending を増やしません。元のアイテムの
// 会計を引き継ぐため、遅延中のアイテムが存在する限り pending > 0 が保たれ、
// ドレイン中にリトライが取りこぼされることはありません。
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []types.WorkItem
	pending int
	aborted bool
	seen    map[string]struct{}
	now     func() time.Time
}

// NewQueue は、新しい空のキューを初期化します。
func NewQueue() *Queue {
	q := &Queue{
		seen: make(map[string]struct{}),
		now:  time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push は、新規URLをキューへ受理します。
// 同一URLの二重受理と、中断後の新規受理は拒否され false を返します。
func (q *Queue) Push(rawURL string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.aborted {
		return false
	}
	if _, dup := q.seen[rawURL]; dup {
		return false
	}
	q.seen[rawURL] = struct{}{}

	q.items = append(q.items, types.WorkItem{
		URL:        rawURL,
		EnqueuedAt: q.now(),
	})
	q.pending++
	q.cond.Signal()
	return true
}

// Resubmit は、リトライ対象のアイテムを delay 経過後にキューへ戻します。
// ワーカーをブロックしないよう、遅延はタイマーに委譲されます。
// pending の会計は元のアイテムから引き継がれます。
func (q *Queue) Resubmit(item types.WorkItem, delay time.Duration) {
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if q.aborted {
			// 中断後の再投入は配達せず、会計だけ閉じる
			q.pending--
			q.cond.Broadcast()
			return
		}
		item.EnqueuedAt = q.now()
		q.items = append(q.items, item)
		q.cond.Signal()
	})
}

// Pop は、次のアイテムが利用可能になるまでブロックします。
// キューが完了（全アイテム終端済み）または中断された場合は false を返します。
func (q *Queue) Pop() (types.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.aborted {
			return types.WorkItem{}, false
		}
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			return item, true
		}
		if q.pending == 0 {
			return types.WorkItem{}, false
		}
		q.cond.Wait()
	}
}

// Done は、受理済みアイテム1件の終端処理完了を通知します。
// 終端結果（成功・終端失敗）につき、必ず1回だけ呼び出してください。
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending--
	if q.pending <= 0 {
		q.cond.Broadcast()
	}
}

// Abort は、キューを即時中断します。以後の Pop は false を返し、
// 新規の Push は受理されません。処理中のアイテムには影響しません。
func (q *Queue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.aborted = true
	q.items = nil
	q.cond.Broadcast()
}

// Pending は、受理済みかつ未終端のアイテム数を返します。
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
