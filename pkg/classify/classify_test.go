package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-listing-scout/pkg/classify"
	"github.com/shouni/go-listing-scout/pkg/types"
)

func TestDetectMaterial(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected types.Material
	}{
		{"polyester_直接表記", "Waterproof Polyester Car Cover", types.MaterialPolyester},
		{"poly_短縮表記", "Heavy duty poly cover for sedan", types.MaterialPolyester},
		{"nylon", "Premium NYLON body cover", types.MaterialNylon},
		{"cotton", "Soft cotton lined cover", types.MaterialCotton},
		{"pvc", "PVC coated cover", types.MaterialPVC},
		{"vinyl_はPVCに分類", "vinyl car cover", types.MaterialPVC},
		{"大文字小文字を区別しない", "POLYESTER cover", types.MaterialPolyester},
		{"語彙なし_Unknown", "Universal Cover", types.MaterialUnknown},
		{"空文字列_Unknown", "", types.MaterialUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classify.DetectMaterial(tc.text), "素材の分類が期待値と異なります")
		})
	}
}

func TestDetectVehicleType(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected types.VehicleType
	}{
		{"suv", "Car cover for SUV", types.VehicleSUV},
		{"sport_utility_表記", "fits sport utility vehicles", types.VehicleSUV},
		{"sedan", "Sedan body cover", types.VehicleSedan},
		{"hatchback", "Hatchback cover", types.VehicleHatchback},
		{"hatch_短縮表記", "fits any hatch", types.VehicleHatchback},
		{"universal", "Universal Cover", types.VehicleUniversal},
		{"all_cars_はuniversal", "suitable for all cars", types.VehicleUniversal},
		{"fit_all_はuniversal", "one size fit all", types.VehicleUniversal},
		{"語彙なし_Unknown", "Polyester cover", types.VehicleUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classify.DetectVehicleType(tc.text), "車両タイプの分類が期待値と異なります")
		})
	}
}

func TestBooleanFlags(t *testing.T) {
	testCases := []struct {
		name       string
		text       string
		waterproof bool
		uv         bool
	}{
		{"waterproof_一語", "Waterproof cover", true, false},
		{"water_proof_分かち書き", "water proof cover", true, false},
		{"water_resistant", "water resistant fabric", true, false},
		{"rain_proof", "rainproof material", true, false},
		{"uv_protection", "UV protection guaranteed", false, true},
		{"uv_単独トークン", "with UV coating", false, true},
		{"ultraviolet", "blocks ultraviolet rays", false, true},
		{"sun_protect", "sun protection layer", false, true},
		{"両方あり", "Waterproof cover with UV protection", true, true},
		{"どちらもなし", "simple cotton cover", false, false},
		{"uvの部分一致は不可", "LOUVER design cover", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.waterproof, classify.IsWaterproof(tc.text), "防水判定が期待値と異なります")
			assert.Equal(t, tc.uv, classify.HasUVProtection(tc.text), "UV判定が期待値と異なります")
		})
	}
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected *types.Size
	}{
		{"cm単位", "450x190cm", &types.Size{WidthCM: 450, HeightCM: 190}},
		{"単位省略はcm扱い", "Cover 450x190", &types.Size{WidthCM: 450, HeightCM: 190}},
		{"両側にcm表記", "480 cm x 195 cm", &types.Size{WidthCM: 480, HeightCM: 195}},
		{"全角の乗算記号", "450×190cm", &types.Size{WidthCM: 450, HeightCM: 190}},
		{"m単位はcmへ換算", "5x2m", &types.Size{WidthCM: 500, HeightCM: 200}},
		{"空白を許容", "450 x 190 cm", &types.Size{WidthCM: 450, HeightCM: 190}},
		{"寸法表記なし", "Universal Cover", nil},
		{"空文字列", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := classify.ParseSize(tc.text)
			if tc.expected == nil {
				assert.Nil(t, actual, "寸法が検出されないことを期待しました")
				return
			}
			require.NotNil(t, actual, "寸法が検出されることを期待しました")
			assert.Equal(t, *tc.expected, *actual, "正規化された寸法が期待値と異なります")
		})
	}
}

// TestScenarioClassification は、代表的な出品テキストに対する分類の
// 組み合わせを検証します。
func TestScenarioClassification(t *testing.T) {
	t.Run("防水ポリエステルSUVカバー_寸法あり", func(t *testing.T) {
		text := "Waterproof Polyester Car Cover for SUV 450x190cm"

		assert.Equal(t, types.MaterialPolyester, classify.DetectMaterial(text))
		assert.Equal(t, types.VehicleSUV, classify.DetectVehicleType(text))
		assert.True(t, classify.IsWaterproof(text))
		require.NotNil(t, classify.ParseSize(text))
		assert.Equal(t, types.Size{WidthCM: 450, HeightCM: 190}, *classify.ParseSize(text))
	})

	t.Run("ユニバーサルカバー_素材語彙なし", func(t *testing.T) {
		text := "Universal Cover"

		assert.Equal(t, types.MaterialUnknown, classify.DetectMaterial(text))
		assert.Equal(t, types.VehicleUniversal, classify.DetectVehicleType(text))
		assert.False(t, classify.IsWaterproof(text))
		assert.Nil(t, classify.ParseSize(text))
	})
}

// TestDeterminism は、同一入力に対する分類結果が常に一致することを検証します。
func TestDeterminism(t *testing.T) {
	text := "Waterproof Polyester Car Cover for SUV 450x190cm with UV protection"

	for i := 0; i < 10; i++ {
		assert.Equal(t, types.MaterialPolyester, classify.DetectMaterial(text))
		assert.Equal(t, types.VehicleSUV, classify.DetectVehicleType(text))
		assert.True(t, classify.IsWaterproof(text))
		assert.True(t, classify.HasUVProtection(text))
		assert.Equal(t, &types.Size{WidthCM: 450, HeightCM: 190}, classify.ParseSize(text))
	}
}
