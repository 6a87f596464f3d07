package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-listing-scout/pkg/feed"
)

// フィードURLを保持するフラグ変数
var feedURL string

// フィードの全体処理のタイムアウト設定
// Flags.TimeoutSec はHTTPクライアントのタイムアウト秒数を表します。
const overallFeedTimeoutFactor = 2 // クライアントタイムアウトの2倍

const defaultOverallFeedTimeout = 20 * time.Second

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードを取得・解析し、シード候補のURLを一覧表示します",
	Long:  `指定されたURLからRSSまたはAtomフィードを取得し、scrape コマンドのシードとして利用できるリンクの一覧を表示します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 全体タイムアウトを設定: クライアントタイムアウトの2倍
		overallTimeout := time.Duration(Flags.TimeoutSec) * overallFeedTimeoutFactor * time.Second
		if Flags.TimeoutSec == 0 {
			overallTimeout = defaultOverallFeedTimeout
		}

		log.Printf("処理対象フィードURL: %s (全体タイムアウト: %s)", feedURL, overallTimeout)

		// 1. 依存性の初期化
		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}

		client, ok := fetcher.(*httpkit.Client)
		if !ok {
			return fmt.Errorf("予期しないHTTPクライアントの実装です: %T。feed.NewParserは*httpkit.Clientを期待します。", fetcher)
		}

		parser := feed.NewParser(client)

		// 2. メインロジックの実行
		ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
		defer cancel()

		parsedFeed, err := parser.FetchAndParse(ctx, feedURL)
		if err != nil {
			return fmt.Errorf("フィード解析パイプラインの実行エラー: %w", err)
		}

		// 3. 結果の出力
		fmt.Printf("--- フィード解析結果 ---\n")
		fmt.Printf("フィードタイトル: %s\n", parsedFeed.Title)
		if parsedFeed.Link != "" {
			fmt.Printf("リンク: %s\n", parsedFeed.Link)
		}
		fmt.Printf("合計アイテム数: %d\n", len(parsedFeed.Items))
		fmt.Println("-----------------------")

		for i, link := range feed.Links(parsedFeed) {
			fmt.Printf("[%d] %s\n", i+1, link)
		}
		fmt.Println()

		return nil
	},
}

func init() {
	// サブコマンド固有のフラグ定義
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")

	// URLフラグを必須にする
	feedCmd.MarkFlagRequired("url")
}
