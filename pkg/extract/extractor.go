package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-listing-scout/pkg/classify"
	"github.com/shouni/go-listing-scout/pkg/types"
)

// ----------------------------------------------------------------------
// 定数定義 (セレクター関連のみ)
// ----------------------------------------------------------------------
//
// ページ構造は予告なく変わるため、各フィールドのセレクターは
// 「サイト固有の data-aut-id → 一般的なフォールバック」の順で列挙します。
// どれにもマッチしない場合、そのフィールドは Unknown / 空のまま残ります。
const (
	titleSelectors       = "h1[data-aut-id='itemTitle'], h1.title, h1"
	priceSelectors       = "span[data-aut-id='itemPrice'], .price, span.notranslate"
	locationSelectors    = "span[data-aut-id='item-location'], .location"
	descriptionSelectors = "div[data-aut-id='itemDescription'], .description, article"
	gallerySelectors     = "div[data-aut-id='itemGallery'] img, figure img, .gallery img"

	itemLinkSelectors = "li[data-aut-id='itemBox'] a[data-aut-id='itemAd'], a[data-aut-id='itemAd']"
	nextPageSelectors = "a[rel='next'], a[data-aut-id='btnLoadMore'], a.pagination-next"
)

// priceDigitsPattern は、価格テキストから数値部分を取り出すためのパターンです。
// 通貨記号と桁区切りを許容します (例: "₹ 1,299", "$45.00")。
var priceDigitsPattern = regexp.MustCompile(`(\d[\d,]*)(?:\.(\d+))?`)

// ----------------------------------------------------------------------
// Extractor
// ----------------------------------------------------------------------

// Extractor は、取得済みページのボディから構造化データを抽出します。
// ネットワークにも共有状態にも依存しない純粋な変換であり、同一入力に
// 対して常に同一の出力を生成します。
type Extractor struct{}

// NewExtractor は、新しい Extractor のインスタンスを生成します。
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SearchPage は、検索結果ページから抽出されたリンク集合です。
type SearchPage struct {
	ItemLinks []string // 出品詳細ページへのリンク (絶対URL)
	NextPages []string // ページネーションのリンク (絶対URL)
}

// ExtractSearchPage は、検索結果ページから出品リンクとページネーション
// リンクを抽出します。出品リンクが1件も見つからない場合、このページは
// 検索結果ページではないと判断し nil を返します。
func (e *Extractor) ExtractSearchPage(body []byte, pageURL string) *SearchPage {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	page := &SearchPage{}
	seen := make(map[string]struct{})

	doc.Find(itemLinkSelectors).Each(func(i int, s *goquery.Selection) {
		if link := resolveLink(base, s); link != "" {
			if _, dup := seen[link]; !dup {
				seen[link] = struct{}{}
				page.ItemLinks = append(page.ItemLinks, link)
			}
		}
	})

	doc.Find(nextPageSelectors).Each(func(i int, s *goquery.Selection) {
		if link := resolveLink(base, s); link != "" {
			if _, dup := seen[link]; !dup {
				seen[link] = struct{}{}
				page.NextPages = append(page.NextPages, link)
			}
		}
	})

	if len(page.ItemLinks) == 0 {
		return nil
	}
	return page
}

// ExtractListing は、出品詳細ページから候補レコードを抽出します。
// タイトルも説明文も見つからない場合は出品ページではないと判断し、
// エラーではなく (nil, false) を返します（上流でフィルタリング）。
// フィールド単位の解釈失敗はレコード全体を失敗させず、Unknown / nil で
// 埋めたまま抽出を継続します。
func (e *Extractor) ExtractListing(result types.FetchResult) (*types.CandidateRecord, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
	if err != nil {
		return nil, false
	}

	title := textUtils.NormalizeText(doc.Find(titleSelectors).First().Text())
	description := textUtils.NormalizeText(doc.Find(descriptionSelectors).First().Text())
	if title == "" && description == "" {
		return nil, false
	}

	// 分類はタイトル+説明文の結合テキストのみに基づく純粋関数とする
	rawText := strings.TrimSpace(title + " " + description)

	record := &types.CandidateRecord{
		SourceURL:   result.URL,
		Title:       title,
		Price:       parsePrice(doc.Find(priceSelectors).First().Text()),
		Location:    textUtils.NormalizeText(doc.Find(locationSelectors).First().Text()),
		Material:    classify.DetectMaterial(rawText),
		VehicleType: classify.DetectVehicleType(rawText),
		Waterproof:  classify.IsWaterproof(rawText),
		UVProtected: classify.HasUVProtection(rawText),
		Size:        classify.ParseSize(rawText),
		ImageCount:  doc.Find(gallerySelectors).Length(),
		RawText:     rawText,
		ScrapedAt:   result.FetchedAt,
	}

	return record, true
}

// ----------------------------------------------------------------------
// ヘルパー関数
// ----------------------------------------------------------------------

// resolveLink は、セレクションの href を絶対URLへ解決します。
func resolveLink(base *url.URL, s *goquery.Selection) string {
	href, ok := s.Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// parsePrice は、価格テキストを10進数値として解釈します。
// 通貨記号・桁区切りを取り除いた上で解釈できない場合は nil を返します。
func parsePrice(text string) *float64 {
	m := priceDigitsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	numeric := strings.ReplaceAll(m[1], ",", "")
	if m[2] != "" {
		numeric += "." + m[2]
	}

	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return nil
	}
	return &value
}
