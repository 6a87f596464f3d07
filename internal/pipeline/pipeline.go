package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shouni/go-listing-scout/pkg/dedup"
	"github.com/shouni/go-listing-scout/pkg/export"
	"github.com/shouni/go-listing-scout/pkg/extract"
	"github.com/shouni/go-listing-scout/pkg/fetch"
	"github.com/shouni/go-listing-scout/pkg/retry"
	"github.com/shouni/go-listing-scout/pkg/throttle"
	"github.com/shouni/go-listing-scout/pkg/types"
)

// ----------------------------------------------------------------------
// 設定と状態
// ----------------------------------------------------------------------

const (
	// DefaultMaxPaginationPages は、検索結果から追加で辿る
	// ページネーションページ数のデフォルト上限です。
	DefaultMaxPaginationPages = 2
)

// Config は、パイプライン実行の設定です。
type Config struct {
	Concurrency        int           // ワーカー数 (1以上)
	HTTPTimeout        time.Duration // 1リクエストのタイムアウト
	MinInterval        time.Duration // 同一ホストへの最小リクエスト間隔
	MaxJitter          time.Duration // 間隔へ加算されるジッター上限
	Retry              retry.Config  // リトライ設定
	MaxPaginationPages int           // 追加で辿るページネーション上限 (負値でデフォルト)
	Verbose            bool          // 進行ログの出力
}

// State は、パイプラインの実行フェーズを表します。
type State int

const (
	StateSeeding State = iota
	StateRunning
	StateDraining
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateSeeding:
		return "seeding"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Result は、パイプライン実行の最終成果物です。
type Result struct {
	Records  []types.CandidateRecord
	Summary  types.Summary
	Failures []types.FailureEntry
}

// ----------------------------------------------------------------------
// Pipeline
// ----------------------------------------------------------------------

// Pipeline は、Fetcher → Extractor → Deduplicator → Writer を配線する
// オーケストレーターです。個々のURLの取得・解析失敗は実行を中断せず、
// 失敗ログと集計に反映されます。実行を中断させるのは、リソース確保の
// 失敗と不正な設定のみです。
type Pipeline struct {
	cfg       Config
	extractor *extract.Extractor
	writer    export.Writer
	state     State
}

// New は、新しい Pipeline を初期化します。
// 設定が不正な場合（並列数0以下など）はエラーを返します。
func New(cfg Config, writer export.Writer) (*Pipeline, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("pipeline.New: 並列数は1以上を指定してください (指定値: %d)", cfg.Concurrency)
	}
	if writer == nil {
		return nil, fmt.Errorf("pipeline.New: Writer が指定されていません")
	}
	if cfg.MaxPaginationPages < 0 {
		cfg.MaxPaginationPages = DefaultMaxPaginationPages
	}
	return &Pipeline{
		cfg:       cfg,
		extractor: extract.NewExtractor(),
		writer:    writer,
		state:     StateSeeding,
	}, nil
}

// State は、現在の実行フェーズを返します。
func (p *Pipeline) State() State {
	return p.state
}

// Run は、シードURL群からパイプラインを実行し、確定済みの結果を返します。
// コンテキストがキャンセルされた場合でも、完了済みのレコードは
// 重複排除・確定・書き出しまで実施されます（部分結果は無結果に勝る）。
func (p *Pipeline) Run(ctx context.Context, seeds []string) (*Result, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("pipeline.Run: シードURLが1件も指定されていません")
	}

	// 1. 依存コンポーネントの構築 (失敗は実行中断対象)
	client := fetch.NewClient(p.cfg.HTTPTimeout)
	th := throttle.New(p.cfg.MinInterval, p.cfg.MaxJitter)
	policy := retry.NewPolicy(p.cfg.Retry)

	fetcher, err := fetch.NewFetcher(client, th, policy, p.cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("Fetcherの初期化エラー: %w", err)
	}

	// 2. シーディング
	queue := fetch.NewQueue()
	for _, seed := range seeds {
		queue.Push(seed)
	}
	p.logf("シーディング完了 (シード数: %d, 並列数: %d)", len(seeds), p.cfg.Concurrency)

	// 3. 実行: 終端結果を消費し、抽出・重複排除・リンク発見を行う
	p.state = StateRunning
	records := dedup.NewRecordSet()
	var failures []types.FailureEntry
	var summary types.Summary
	paginationAdmitted := 0

	results := fetcher.Run(ctx, queue)
	for result := range results {
		if result.Success() {
			summary.Succeeded++
			p.processSuccess(result, queue, records, &paginationAdmitted)
		} else {
			summary.Failed++
			failures = append(failures, types.FailureEntry{
				URL:     result.URL,
				Attempt: result.Attempt,
				Err:     result.Err,
			})
			p.logf("終端失敗: %s (試行回数: %d, 原因: %v)", result.URL, result.Attempt, result.Err)
		}
		// 終端結果1件につき会計を1回だけ閉じる。リンク発見による Push を
		// 先に済ませているため、キューが早期に完了扱いになることはない。
		queue.Done()
	}

	// 4. ドレイン完了 → 確定
	p.state = StateDraining
	summary.Fetched = summary.Succeeded + summary.Failed
	summary.Deduplicated = records.Dropped()

	finalRecords := records.Finalize()
	dedup.SortBySourceURL(finalRecords)
	summary.FinalRecordCount = len(finalRecords)

	p.state = StateFinalized
	p.logf("パイプライン確定 (取得: %d, 成功: %d, 失敗: %d, 重複: %d, 最終レコード: %d)",
		summary.Fetched, summary.Succeeded, summary.Failed, summary.Deduplicated, summary.FinalRecordCount)

	// 5. Writer への引き渡し
	if err := p.writer.Write(finalRecords); err != nil {
		return &Result{Records: finalRecords, Summary: summary, Failures: failures},
			fmt.Errorf("確定レコードの書き出しエラー: %w", err)
	}

	return &Result{Records: finalRecords, Summary: summary, Failures: failures}, nil
}

// processSuccess は、取得成功1件を抽出段へ回します。
// 検索結果ページであれば出品リンクとページネーションを発見してキューへ
// 受理し、出品詳細ページであれば候補レコードを重複排除段へ提示します。
// どちらでもないページは黙って無視します（エラーではない）。
func (p *Pipeline) processSuccess(result types.FetchResult, queue *fetch.Queue, records *dedup.RecordSet, paginationAdmitted *int) {
	if searchPage := p.extractor.ExtractSearchPage(result.Body, result.URL); searchPage != nil {
		admittedItems := 0
		for _, link := range searchPage.ItemLinks {
			if queue.Push(link) {
				admittedItems++
			}
		}
		for _, next := range searchPage.NextPages {
			if *paginationAdmitted >= p.cfg.MaxPaginationPages {
				break
			}
			if queue.Push(next) {
				*paginationAdmitted++
			}
		}
		p.logf("検索結果ページを処理: %s (出品リンク: %d件)", result.URL, admittedItems)
		return
	}

	if record, ok := p.extractor.ExtractListing(result); ok {
		outcome := records.Offer(record)
		if p.cfg.Verbose {
			p.logf("出品ページを処理: %s (判定: %v)", result.URL, outcome)
		}
		return
	}

	p.logf("出品構造を認識できないページをスキップ: %s", result.URL)
}

// logf は、Verbose 設定時のみ進行ログを出力します。
func (p *Pipeline) logf(format string, args ...any) {
	if p.cfg.Verbose {
		log.Printf(format, args...)
	}
}
