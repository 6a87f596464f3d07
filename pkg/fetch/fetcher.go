package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/shouni/go-listing-scout/pkg/retry"
	"github.com/shouni/go-listing-scout/pkg/throttle"
	"github.com/shouni/go-listing-scout/pkg/types"
)

const (
	// DefaultConcurrency は、並列フェッチのデフォルトのワーカー数です。
	DefaultConcurrency = 4
)

// Fetcher は、固定数のワーカーで共有キューからURLを取得するワーカープールです。
// 各ワーカーは「デキュー → スロットル取得 → リクエスト → リトライ判定」の
// ループを回し、終端結果のみを結果チャネルへ送出します。
// リトライ待機はキューへの遅延再投入で表現されるため、待機中のアイテムが
// ワーカースロットを占有することはありません。
type Fetcher struct {
	client      *Client
	throttle    *throttle.Throttle
	policy      *retry.Policy
	concurrency int
}

// NewFetcher は、新しい Fetcher を初期化します。
// concurrency が0以下の場合は設定エラーを返します（実行中断対象）。
func NewFetcher(client *Client, th *throttle.Throttle, policy *retry.Policy, concurrency int) (*Fetcher, error) {
	if client == nil || th == nil || policy == nil {
		return nil, fmt.Errorf("fetch.NewFetcher: 依存コンポーネントが nil です")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("fetch.NewFetcher: 並列数は1以上を指定してください (指定値: %d)", concurrency)
	}
	return &Fetcher{
		client:      client,
		throttle:    th,
		policy:      policy,
		concurrency: concurrency,
	}, nil
}

// Run は、ワーカープールを起動し、終端結果のストリームを返します。
// キューが完了（全アイテム終端）または中断された時点で全ワーカーが
// 終了し、チャネルはクローズされます。
// コンテキストのキャンセルはキューの中断に変換され、処理中のリクエストは
// 完了またはタイムアウトまで実行されます（協調的シャットダウン）。
func (f *Fetcher) Run(ctx context.Context, queue *Queue) <-chan types.FetchResult {
	results := make(chan types.FetchResult, f.concurrency)

	// キャンセル監視: コンテキストの終了をキュー中断へ変換する
	runDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			queue.Abort()
		case <-runDone:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.workerLoop(ctx, queue, results)
		}()
	}

	go func() {
		wg.Wait()
		close(runDone)
		close(results)
	}()

	return results
}

// workerLoop は、1ワーカー分の処理ループです。
func (f *Fetcher) workerLoop(ctx context.Context, queue *Queue, results chan<- types.FetchResult) {
	for {
		item, ok := queue.Pop()
		if !ok {
			return
		}

		if err := ValidateURL(item.URL); err != nil {
			// 不正URLは恒久エラー。リクエストを発行せずに終端させる。
			results <- terminalFailure(item, err, types.ErrorKindPermanent)
			continue
		}

		if err := f.throttle.Acquire(ctx, hostOf(item.URL)); err != nil {
			// キャンセルによる中断。終端失敗として記録し、結果は部分確定に回す。
			results <- terminalFailure(item, err, types.ErrorKindTransient)
			continue
		}

		resp, err := f.client.Get(ctx, item.URL)
		if err == nil {
			results <- types.FetchResult{
				URL:       item.URL,
				Body:      resp.Body,
				Status:    resp.Status,
				FetchedAt: time.Now(),
				Attempt:   item.Attempt,
			}
			continue
		}

		kind := ClassifyError(err)
		decision := f.policy.Decide(item.Attempt, kind)
		if decision.Retry {
			item.Attempt++
			queue.Resubmit(item, decision.Delay)
			continue
		}

		results <- terminalFailure(item, err, kind)
	}
}

// terminalFailure は、終端失敗の FetchResult を構築します。
// Attempt には実際に発行されたリクエスト回数（= item.Attempt + 1）を
// 記録します。この値がリトライ上限を超えることはありません。
func terminalFailure(item types.WorkItem, err error, kind types.ErrorKind) types.FetchResult {
	return types.FetchResult{
		URL:       item.URL,
		FetchedAt: time.Now(),
		Err:       err,
		Kind:      kind,
		Attempt:   item.Attempt + 1,
	}
}

// hostOf は、スロットルのスコープとして使用するホスト名を返します。
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
