package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Fetcher は、Parser が依存するHTTP取得機能のインターフェースです。
// *httpkit.Client はこのインターフェースを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は、RSS/Atomフィードをシードソースとして解釈します。
// 多くのクラシファイドサイトは検索結果をフィードとして配信しており、
// その各アイテムのリンクをパイプラインのシードURLとして利用できます。
type Parser struct {
	client Fetcher
}

// NewParser は、新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は、指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	fp := gofeed.NewParser()
	parsed, parseErr := fp.Parse(bytes.NewReader(body))
	if parseErr != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (URL: %s): %w", feedURL, parseErr)
	}
	return parsed, nil
}

// FetchSeeds は、フィードを取得し、各アイテムのリンクをシードURLの
// リストとして返します。リンクを持たないアイテムは無視されます。
func (p *Parser) FetchSeeds(ctx context.Context, feedURL string) ([]string, error) {
	parsed, err := p.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return Links(parsed), nil
}

// Links は、パース済みフィードから空でないリンクを抽出します。
func Links(feed *gofeed.Feed) []string {
	if feed == nil || len(feed.Items) == 0 {
		return []string{}
	}

	urls := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls
}
