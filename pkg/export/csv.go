package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// csvHeader は、行指向出力の固定カラム順を定義します。
// CandidateRecord のフィールド順と一致させています。
var csvHeader = []string{
	"source_url",
	"title",
	"price",
	"location",
	"material",
	"vehicle_type",
	"waterproof",
	"uv_protected",
	"width_cm",
	"height_cm",
	"image_count",
	"scraped_at",
}

// CSVWriter は、レコード集合をCSVファイルとして書き出します。
type CSVWriter struct {
	path string
}

// NewCSVWriter は、出力先パスを指定して CSVWriter を生成します。
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write は、ヘッダー行に続けて1レコード1行でCSVを書き出します。
func (w *CSVWriter) Write(records []types.CandidateRecord) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("CSVファイルの作成に失敗しました (%s): %w", w.path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV は、任意の io.Writer へCSVを書き出します。
func WriteCSV(out io.Writer, records []types.CandidateRecord) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("CSVヘッダーの書き出しに失敗しました: %w", err)
	}

	for i := range records {
		if err := cw.Write(csvRow(&records[i])); err != nil {
			return fmt.Errorf("CSV行の書き出しに失敗しました (%s): %w", records[i].SourceURL, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvRow は、1レコードをカラム順どおりの文字列スライスへ変換します。
// 欠損フィールド (Price, Size) は空文字列として出力します。
func csvRow(record *types.CandidateRecord) []string {
	var price, widthCM, heightCM string
	if record.Price != nil {
		price = strconv.FormatFloat(*record.Price, 'f', -1, 64)
	}
	if record.Size != nil {
		widthCM = strconv.Itoa(record.Size.WidthCM)
		heightCM = strconv.Itoa(record.Size.HeightCM)
	}

	return []string{
		record.SourceURL,
		record.Title,
		price,
		record.Location,
		string(record.Material),
		string(record.VehicleType),
		strconv.FormatBool(record.Waterproof),
		strconv.FormatBool(record.UVProtected),
		widthCM,
		heightCM,
		strconv.Itoa(record.ImageCount),
		record.ScrapedAt.UTC().Format(time.RFC3339),
	}
}
