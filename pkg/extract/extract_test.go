package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-listing-scout/pkg/extract"
	"github.com/shouni/go-listing-scout/pkg/types"
)

// listingHTML は、サイト固有の data-aut-id 属性を持つ出品詳細ページです。
const listingHTML = `<html><head><title>Car Cover | Classifieds</title></head><body>
<h1 data-aut-id="itemTitle">Waterproof Polyester Car Cover for SUV 450x190cm</h1>
<span data-aut-id="itemPrice">₹ 1,299</span>
<span data-aut-id="item-location">Mumbai, Maharashtra</span>
<div data-aut-id="itemGallery">
  <img src="/img/1.jpg"><img src="/img/2.jpg"><img src="/img/3.jpg">
</div>
<div data-aut-id="itemDescription">
  Heavy duty cover with UV protection. Fits most SUVs.
</div>
</body></html>`

// fallbackHTML は、data-aut-id を持たない未知の構造のページです。
// セレクターのフォールバックで最低限のフィールドが埋まることを検証します。
const fallbackHTML = `<html><body>
<h1>Universal Cover</h1>
<article>Simple cover for all cars. No material specified.</article>
</body></html>`

// searchHTML は、出品リンクとページネーションを含む検索結果ページです。
const searchHTML = `<html><body>
<ul>
  <li data-aut-id="itemBox"><a data-aut-id="itemAd" href="/item/cover-1">Cover 1</a></li>
  <li data-aut-id="itemBox"><a data-aut-id="itemAd" href="/item/cover-2">Cover 2</a></li>
  <li data-aut-id="itemBox"><a data-aut-id="itemAd" href="https://other.example.com/item/cover-3">Cover 3</a></li>
  <li data-aut-id="itemBox"><a data-aut-id="itemAd" href="/item/cover-1">Cover 1 duplicate</a></li>
</ul>
<a rel="next" href="/items/q-car-cover?page=2">Next</a>
</body></html>`

func fetchSuccess(url, body string) types.FetchResult {
	return types.FetchResult{
		URL:       url,
		Body:      []byte(body),
		Status:    200,
		FetchedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}
}

func TestExtractListing(t *testing.T) {
	extractor := extract.NewExtractor()

	t.Run("サイト固有セレクターで全フィールドを抽出", func(t *testing.T) {
		record, ok := extractor.ExtractListing(fetchSuccess("https://www.example.com/item/cover-1", listingHTML))
		require.True(t, ok, "出品ページとして認識されることを期待しました")

		assert.Equal(t, "https://www.example.com/item/cover-1", record.SourceURL)
		assert.Equal(t, "Waterproof Polyester Car Cover for SUV 450x190cm", record.Title)
		require.NotNil(t, record.Price, "価格が抽出されることを期待しました")
		assert.InDelta(t, 1299.0, *record.Price, 0.001)
		assert.Equal(t, "Mumbai, Maharashtra", record.Location)
		assert.Equal(t, types.MaterialPolyester, record.Material)
		assert.Equal(t, types.VehicleSUV, record.VehicleType)
		assert.True(t, record.Waterproof)
		assert.True(t, record.UVProtected)
		require.NotNil(t, record.Size)
		assert.Equal(t, types.Size{WidthCM: 450, HeightCM: 190}, *record.Size)
		assert.Equal(t, 3, record.ImageCount)
		assert.False(t, record.ScrapedAt.IsZero(), "取得時刻が引き継がれることを期待しました")
	})

	t.Run("未知の構造はフォールバックで劣化抽出", func(t *testing.T) {
		record, ok := extractor.ExtractListing(fetchSuccess("https://www.example.com/item/x", fallbackHTML))
		require.True(t, ok)

		assert.Equal(t, "Universal Cover", record.Title)
		assert.Nil(t, record.Price, "価格は欠損として扱われることを期待しました")
		assert.Equal(t, types.MaterialUnknown, record.Material)
		assert.Equal(t, types.VehicleUniversal, record.VehicleType)
		assert.False(t, record.Waterproof)
		assert.Nil(t, record.Size)
	})

	t.Run("出品構造のないページはレコードを生成しない", func(t *testing.T) {
		_, ok := extractor.ExtractListing(fetchSuccess("https://www.example.com/about", `<html><body><nav>menu</nav></body></html>`))
		assert.False(t, ok, "出品ページとして認識されないことを期待しました")
	})

	t.Run("壊れたマークアップでも失敗しない", func(t *testing.T) {
		broken := `<html><h1 data-aut-id="itemTitle">Nylon cover<div><span>₹</div>`
		record, ok := extractor.ExtractListing(fetchSuccess("https://www.example.com/item/y", broken))
		require.True(t, ok)
		assert.Equal(t, "Nylon cover", record.Title)
		assert.Equal(t, types.MaterialNylon, record.Material)
	})
}

// TestExtractListingDeterminism は、同一ボディに対する抽出結果が
// ビット単位で一致することを検証します。
func TestExtractListingDeterminism(t *testing.T) {
	extractor := extract.NewExtractor()
	input := fetchSuccess("https://www.example.com/item/cover-1", listingHTML)

	first, ok := extractor.ExtractListing(input)
	require.True(t, ok)
	second, ok := extractor.ExtractListing(input)
	require.True(t, ok)

	assert.Equal(t, *first, *second, "抽出は決定的であることを期待しました")
}

func TestExtractSearchPage(t *testing.T) {
	extractor := extract.NewExtractor()

	t.Run("出品リンクとページネーションを絶対URLで抽出", func(t *testing.T) {
		page := extractor.ExtractSearchPage([]byte(searchHTML), "https://www.example.com/items/q-car-cover")
		require.NotNil(t, page, "検索結果ページとして認識されることを期待しました")

		// 重複リンクは1件に畳まれる
		assert.Equal(t, []string{
			"https://www.example.com/item/cover-1",
			"https://www.example.com/item/cover-2",
			"https://other.example.com/item/cover-3",
		}, page.ItemLinks)

		assert.Equal(t, []string{
			"https://www.example.com/items/q-car-cover?page=2",
		}, page.NextPages)
	})

	t.Run("出品リンクのないページは検索結果ページではない", func(t *testing.T) {
		page := extractor.ExtractSearchPage([]byte(listingHTML), "https://www.example.com/item/cover-1")
		assert.Nil(t, page)
	})
}
