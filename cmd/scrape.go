package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-listing-scout/internal/pipeline"
	"github.com/shouni/go-listing-scout/pkg/export"
	"github.com/shouni/go-listing-scout/pkg/feed"
	"github.com/shouni/go-listing-scout/pkg/retry"
	"github.com/shouni/go-listing-scout/pkg/throttle"
)

// コマンドラインフラグ変数を定義
var (
	scrapeURLs     string // --urls カンマ区切りのシードURLリスト
	scrapeFeedURL  string // --feed シードを取得するRSS/AtomフィードURL
	scrapeParallel int    // --concurrency 並列実行数
	scrapeInterval int    // --interval-ms 同一ホストへの最小リクエスト間隔
	scrapeJitter   int    // --jitter-ms 間隔へ加算するジッター上限
	scrapeMaxPages int    // --max-pages 追加で辿るページネーション上限
	scrapeOutput   string // --output 出力ファイルのベース名
	scrapeFormats  string // --formats 出力フォーマット (csv,parquet)
)

// resolveSeeds は、フラグ・フィード・標準入力の優先順でシードURLを決定します。
func resolveSeeds(ctx context.Context) ([]string, error) {
	var raw []string

	switch {
	case scrapeURLs != "":
		raw = strings.Split(scrapeURLs, ",")

	case scrapeFeedURL != "":
		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return nil, fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}
		client, ok := fetcher.(*httpkit.Client)
		if !ok {
			return nil, fmt.Errorf("予期しないHTTPクライアントの実装です: %T", fetcher)
		}
		links, err := feed.NewParser(client).FetchSeeds(ctx, scrapeFeedURL)
		if err != nil {
			return nil, fmt.Errorf("フィードからのシード取得エラー: %w", err)
		}
		raw = links

	default:
		log.Println("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				raw = append(raw, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
		}
	}

	// スキーム補完とバリデーション
	seeds := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		normalized, err := ensureScheme(u)
		if err != nil {
			return nil, fmt.Errorf("シードURLの処理エラー (%s): %w", u, err)
		}
		seeds = append(seeds, normalized)
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("処理対象のシードURLが一つも指定されていません")
	}
	return seeds, nil
}

// buildWriter は、--formats と --output から Writer を組み立てます。
func buildWriter() (export.Writer, []string, error) {
	base := scrapeOutput
	if base == "" {
		base = "car_covers_" + time.Now().Format("20060102_150405")
	}

	var writers []export.Writer
	var paths []string
	for _, format := range strings.Split(scrapeFormats, ",") {
		switch strings.TrimSpace(strings.ToLower(format)) {
		case "csv":
			path := base + ".csv"
			writers = append(writers, export.NewCSVWriter(path))
			paths = append(paths, path)
		case "parquet":
			path := base + ".parquet"
			writers = append(writers, export.NewParquetWriter(path))
			paths = append(paths, path)
		case "":
			// 空要素は無視
		default:
			return nil, nil, fmt.Errorf("未対応の出力フォーマットです: %s (csv または parquet を指定してください)", format)
		}
	}

	if len(writers) == 0 {
		return nil, nil, fmt.Errorf("出力フォーマットが一つも指定されていません")
	}
	return export.NewMultiWriter(writers...), paths, nil
}

// printReport は、実行結果のレポートを出力します。
func printReport(result *pipeline.Result, paths []string) {
	fmt.Println("--- スクレイピング結果 ---")
	fmt.Printf("取得完了: %d 件 (成功 %d 件, 失敗 %d 件)\n",
		result.Summary.Fetched, result.Summary.Succeeded, result.Summary.Failed)
	fmt.Printf("重複排除: %d 件\n", result.Summary.Deduplicated)
	fmt.Printf("最終レコード数: %d 件\n", result.Summary.FinalRecordCount)

	if len(result.Failures) > 0 {
		fmt.Println("--- 失敗ログ ---")
		for i, failure := range result.Failures {
			fmt.Printf("❌ [%d] %s (試行回数: %d)\n", i+1, failure.URL, failure.Attempt)
			fmt.Printf("     エラー: %v\n", failure.Err)
		}
	}

	for _, path := range paths {
		fmt.Printf("✅ 書き出し完了: %s\n", path)
	}
	fmt.Println("-------------------------------")
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "シードURLからカーカバー出品を並列抽出し、CSV/Parquetへ書き出します",
	Long: `--urls フラグでカンマ区切りのシードURLを受け取るか、--feed フラグでRSS/Atom
フィードからシードを取得するか、標準入力からURLを一行ずつ読み込みます。
検索結果ページは出品リンクとページネーションを発見し、出品詳細ページは
分類済みレコードとして抽出されます。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 1. 割り込みによる協調的シャットダウンを設定
		// キャンセル後も処理中のリクエストは完了まで実行され、
		// 完了分のレコードは確定・書き出しされます。
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 2. シードURLの決定
		seeds, err := resolveSeeds(ctx)
		if err != nil {
			return err
		}

		// 3. Writer の組み立て
		writer, paths, err := buildWriter()
		if err != nil {
			return err
		}

		// 4. パイプラインの構築と実行
		cfg := pipeline.Config{
			Concurrency: scrapeParallel,
			HTTPTimeout: time.Duration(Flags.TimeoutSec) * time.Second,
			MinInterval: time.Duration(scrapeInterval) * time.Millisecond,
			MaxJitter:   time.Duration(scrapeJitter) * time.Millisecond,
			Retry: retry.Config{
				MaxAttempts:     Flags.MaxRetries,
				InitialInterval: retry.InitialBackoffInterval,
				MaxInterval:     retry.MaxBackoffInterval,
			},
			MaxPaginationPages: scrapeMaxPages,
			Verbose:            clibase.Flags.Verbose,
		}

		p, err := pipeline.New(cfg, writer)
		if err != nil {
			return fmt.Errorf("パイプラインの初期化エラー: %w", err)
		}

		log.Printf("スクレイピング開始 (シード数: %d, 並列数: %d, 最小間隔: %dms)",
			len(seeds), scrapeParallel, scrapeInterval)

		result, err := p.Run(ctx, seeds)
		if result != nil {
			// 書き出しエラーでも、集計とレポートは可能な限り出力する
			printReport(result, paths)
		}
		if err != nil {
			return fmt.Errorf("スクレイピングパイプラインの実行エラー: %w", err)
		}

		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeURLs, "urls", "u", "",
		"抽出対象のカンマ区切りシードURLリスト (例: url1,url2,url3)")
	scrapeCmd.Flags().StringVar(&scrapeFeedURL, "feed", "",
		"シードURLを取得するRSS/AtomフィードのURL")
	scrapeCmd.Flags().IntVarP(&scrapeParallel, "concurrency", "c", 4,
		"最大並列実行数")
	scrapeCmd.Flags().IntVar(&scrapeInterval, "interval-ms", int(throttle.DefaultMinInterval/time.Millisecond),
		"同一ホストへの最小リクエスト間隔（ミリ秒）")
	scrapeCmd.Flags().IntVar(&scrapeJitter, "jitter-ms", int(throttle.DefaultMaxJitter/time.Millisecond),
		"リクエスト間隔へ加算するジッター上限（ミリ秒）")
	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", pipeline.DefaultMaxPaginationPages,
		"検索結果から追加で辿るページネーションページ数の上限")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "",
		"出力ファイルのベース名 (デフォルト: car_covers_<タイムスタンプ>)")
	scrapeCmd.Flags().StringVar(&scrapeFormats, "formats", "csv,parquet",
		"出力フォーマットのカンマ区切りリスト (csv, parquet)")
}
