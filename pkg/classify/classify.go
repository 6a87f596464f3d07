package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// ----------------------------------------------------------------------
// 分類語彙の定義
// ----------------------------------------------------------------------

// keywordRule は「キーワード群のいずれかが含まれたら値が確定する」という
// 1件の独立した分類規則です。規則はスライスの先頭から順に評価され、
// 最初にマッチした規則が勝ちます。
type keywordRule[T any] struct {
	value    T
	keywords []string
}

// materialRules は素材分類の規則リストです。
// 順序に意味があります: "poly" は "polyester" の短縮表記として扱うため、
// polyester を nylon などより先に評価します。
var materialRules = []keywordRule[types.Material]{
	{types.MaterialPolyester, []string{"polyester", "poly"}},
	{types.MaterialNylon, []string{"nylon"}},
	{types.MaterialCotton, []string{"cotton"}},
	{types.MaterialPVC, []string{"pvc", "vinyl"}},
}

// vehicleRules は車両タイプ分類の規則リストです。
var vehicleRules = []keywordRule[types.VehicleType]{
	{types.VehicleSUV, []string{"suv", "sport utility"}},
	{types.VehicleSedan, []string{"sedan"}},
	{types.VehicleHatchback, []string{"hatchback", "hatch"}},
	{types.VehicleUniversal, []string{"universal", "all cars", "fit all"}},
}

var (
	waterproofPattern = regexp.MustCompile(`(?i)water\s*proof|water\s*resistant|rain\s*proof`)
	uvPattern         = regexp.MustCompile(`(?i)\buv\b|uv\s*protect|uv\s*resistant|ultraviolet|sun\s*protect`)

	// sizePattern は「<数値> x <数値> [単位]」形式の寸法表記にマッチします。
	// 区切りには半角の x と全角の × の両方を許容します。
	sizePattern = regexp.MustCompile(`(?i)(\d+)\s*(?:cm)?\s*[x×]\s*(\d+)\s*(cm|m)?\b`)
)

// ----------------------------------------------------------------------
// 分類関数（すべて入力テキストの純粋関数）
// ----------------------------------------------------------------------

// DetectMaterial は、テキストから素材を判定します。
// いずれの語彙にもマッチしない場合は MaterialUnknown を返します。
func DetectMaterial(text string) types.Material {
	return matchFirst(text, materialRules, types.MaterialUnknown)
}

// DetectVehicleType は、テキストから適合車両タイプを判定します。
// いずれの語彙にもマッチしない場合は VehicleUnknown を返します。
func DetectVehicleType(text string) types.VehicleType {
	return matchFirst(text, vehicleRules, types.VehicleUnknown)
}

// IsWaterproof は、防水表記の有無を判定します。
func IsWaterproof(text string) bool {
	return waterproofPattern.MatchString(text)
}

// HasUVProtection は、UV保護表記の有無を判定します。
func HasUVProtection(text string) bool {
	return uvPattern.MatchString(text)
}

// ParseSize は、テキスト中の寸法表記をセンチメートル単位に正規化して返します。
// 単位が m の場合は100倍し、単位の省略は cm とみなします。
// 寸法表記が存在しない、または解釈できない場合は nil を返します。
func ParseSize(text string) *types.Size {
	m := sizePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	width, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	height, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}

	// 単位が m の場合のみ換算。単位省略時は cm とみなす。
	if strings.EqualFold(m[3], "m") {
		width *= 100
		height *= 100
	}

	if width <= 0 || height <= 0 {
		return nil
	}
	return &types.Size{WidthCM: width, HeightCM: height}
}

// matchFirst は、規則リストを先頭から評価し、最初にマッチした値を返します。
func matchFirst[T any](text string, rules []keywordRule[T], fallback T) T {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.value
			}
		}
	}
	return fallback
}
