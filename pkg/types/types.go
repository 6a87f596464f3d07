package types

import "time"

// ----------------------------------------------------------------------
// 分類列挙型
// ----------------------------------------------------------------------

// Material は、カバーの素材分類を表します。
type Material string

const (
	MaterialPolyester Material = "polyester"
	MaterialNylon     Material = "nylon"
	MaterialCotton    Material = "cotton"
	MaterialPVC       Material = "pvc"
	MaterialUnknown   Material = "unknown"
)

// VehicleType は、カバーが適合する車両タイプの分類を表します。
type VehicleType string

const (
	VehicleSUV       VehicleType = "suv"
	VehicleSedan     VehicleType = "sedan"
	VehicleHatchback VehicleType = "hatchback"
	VehicleUniversal VehicleType = "universal"
	VehicleUnknown   VehicleType = "unknown"
)

// Size は、正規化済み（センチメートル単位）のカバー寸法を表します。
type Size struct {
	WidthCM  int
	HeightCM int
}

// ----------------------------------------------------------------------
// パイプラインのデータモデル
// ----------------------------------------------------------------------

// WorkItem は、ワークキューに投入される1件の取得対象URLです。
// Attempt はリトライのたびにインクリメントされ、リトライ上限を超えた
// WorkItem が再びキューへ戻ることはありません。
type WorkItem struct {
	URL        string
	Attempt    int
	EnqueuedAt time.Time
}

// ErrorKind は、取得エラーの分類（一時的か恒久的か）を表します。
// RetryPolicy はこの分類のみに基づいてリトライ可否を判断します。
type ErrorKind int

const (
	// ErrorKindTransient は、再試行によって回復しうるエラー
	// （タイムアウト、接続リセット、HTTP 429/5xx）を表します。
	ErrorKindTransient ErrorKind = iota
	// ErrorKindPermanent は、再試行しても成功しないエラー
	// （HTTP 404、不正なURLなど）を表します。
	ErrorKindPermanent
)

// FetchResult は、1件のURLに対する取得処理の終端結果です。
// Err が nil の場合は成功であり Body と Status が有効です。
// Err が非 nil の場合は終端失敗であり Kind と Attempt が有効です。
type FetchResult struct {
	URL       string
	Body      []byte
	Status    int
	FetchedAt time.Time
	Err       error
	Kind      ErrorKind
	Attempt   int
}

// Success は、この結果が取得成功を表すかどうかを返します。
func (r FetchResult) Success() bool {
	return r.Err == nil
}

// ----------------------------------------------------------------------
// 抽出レコード
// ----------------------------------------------------------------------

// CandidateRecord は、1件の出品ページから抽出・分類された候補レコードです。
// 分類フィールドは RawText の純粋関数であり、同一入力に対して常に
// 同一の値を生成します（再実行・リトライに対して安全）。
type CandidateRecord struct {
	SourceURL   string
	Title       string
	Price       *float64
	Location    string
	Material    Material
	VehicleType VehicleType
	Waterproof  bool
	UVProtected bool
	Size        *Size
	ImageCount  int
	RawText     string
	ScrapedAt   time.Time
}

// Summary は、パイプライン実行全体の集計結果です。
type Summary struct {
	Fetched          int
	Succeeded        int
	Failed           int
	Deduplicated     int
	FinalRecordCount int
}

// FailureEntry は、リトライ枯渇または恒久エラーで終端した1件の失敗記録です。
type FailureEntry struct {
	URL     string
	Attempt int
	Err     error
}
