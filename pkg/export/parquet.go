package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// parquetRow は、カラムナ出力用のフラットな行スキーマです。
// 欠損しうるフィールドは optional カラムとして表現します。
type parquetRow struct {
	SourceURL   string   `parquet:"source_url"`
	Title       string   `parquet:"title"`
	Price       *float64 `parquet:"price,optional"`
	Location    string   `parquet:"location"`
	Material    string   `parquet:"material"`
	VehicleType string   `parquet:"vehicle_type"`
	Waterproof  bool     `parquet:"waterproof"`
	UVProtected bool     `parquet:"uv_protected"`
	WidthCM     *int32   `parquet:"width_cm,optional"`
	HeightCM    *int32   `parquet:"height_cm,optional"`
	ImageCount  int32    `parquet:"image_count"`
	ScrapedAt   int64    `parquet:"scraped_at_ms"` // UNIXエポックミリ秒
}

// ParquetWriter は、レコード集合をParquetファイルとして書き出します。
type ParquetWriter struct {
	path string
}

// NewParquetWriter は、出力先パスを指定して ParquetWriter を生成します。
func NewParquetWriter(path string) *ParquetWriter {
	return &ParquetWriter{path: path}
}

// Write は、レコード集合を1つの行グループとして書き出します。
func (w *ParquetWriter) Write(records []types.CandidateRecord) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("Parquetファイルの作成に失敗しました (%s): %w", w.path, err)
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[parquetRow](f)

	rows := make([]parquetRow, len(records))
	for i := range records {
		rows[i] = toParquetRow(&records[i])
	}

	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("Parquet行の書き出しに失敗しました: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("Parquetライターのクローズに失敗しました: %w", err)
	}
	return f.Close()
}

// toParquetRow は、1レコードを行スキーマへ変換します。
func toParquetRow(record *types.CandidateRecord) parquetRow {
	row := parquetRow{
		SourceURL:   record.SourceURL,
		Title:       record.Title,
		Price:       record.Price,
		Location:    record.Location,
		Material:    string(record.Material),
		VehicleType: string(record.VehicleType),
		Waterproof:  record.Waterproof,
		UVProtected: record.UVProtected,
		ImageCount:  int32(record.ImageCount),
		ScrapedAt:   record.ScrapedAt.UTC().UnixMilli(),
	}
	if record.Size != nil {
		width := int32(record.Size.WidthCM)
		height := int32(record.Size.HeightCM)
		row.WidthCM = &width
		row.HeightCM = &height
	}
	return row
}
