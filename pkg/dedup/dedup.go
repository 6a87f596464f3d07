package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/shouni/go-listing-scout/pkg/types"
)

// Outcome は、Offer に対する判定結果です。
type Outcome int

const (
	// Inserted は、新規レコードとして受理されたことを表します。
	Inserted Outcome = iota
	// Merged は、既存レコードがより完全な新レコードで置換されたことを表します。
	Merged
	// Ignored は、既存レコードの方が完全であり破棄されたことを表します。
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Merged:
		return "merged"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Fingerprint は、論理的に同一の出品を識別する決定的なキーを計算します。
// 正規化したタイトルとソースURLのホスト+パスから導出されるため、
// クエリパラメータの揺れやタイトルの大文字小文字の違いでは別物に
// なりません。寸法などの抽出フィールドはキーに含めません: 同じ出品の
// 再取得でフィールドの埋まり方だけが違う場合も、同一キーとしてマージ
// 方針の比較対象になります。
func Fingerprint(record *types.CandidateRecord) string {
	hostPath := record.SourceURL
	if parsed, err := url.Parse(record.SourceURL); err == nil && parsed.Host != "" {
		hostPath = parsed.Host + parsed.Path
	}

	key := strings.ToLower(strings.Join(strings.Fields(record.Title), " ")) +
		"|" + strings.ToLower(hostPath)

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// RecordSet は、Fingerprint をキーとする重複排除済みレコード集合です。
// マージ方針は「より完全な方が勝つ」: 既存レコードを置換できるのは、
// 埋まっているフィールド数が厳密に多い場合のみで、同数以下は先着が
// 維持されます。すべての変更は内部ミューテックスで直列化されます。
type RecordSet struct {
	mu      sync.Mutex
	records map[string]*types.CandidateRecord
	order   []string // 挿入順 (出力の安定性のため)
	dropped int
	frozen  bool
}

// NewRecordSet は、新しい空の RecordSet を初期化します。
func NewRecordSet() *RecordSet {
	return &RecordSet{
		records: make(map[string]*types.CandidateRecord),
	}
}

// Offer は、候補レコードを集合へ提示し、判定結果を返します。
// 確定 (Finalize) 後の提示は常に Ignored となります。
func (rs *RecordSet) Offer(record *types.CandidateRecord) Outcome {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.frozen || record == nil {
		return Ignored
	}

	fp := Fingerprint(record)
	existing, ok := rs.records[fp]
	if !ok {
		rs.records[fp] = record
		rs.order = append(rs.order, fp)
		return Inserted
	}

	rs.dropped++
	if completeness(record) > completeness(existing) {
		rs.records[fp] = record
		return Merged
	}
	return Ignored
}

// Finalize は、集合を凍結し、重複排除済みレコードのスライスを返します。
// 以後の Offer は受理されません。出力順は挿入順です。
func (rs *RecordSet) Finalize() []types.CandidateRecord {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.frozen = true
	out := make([]types.CandidateRecord, 0, len(rs.records))
	for _, fp := range rs.order {
		out = append(out, *rs.records[fp])
	}
	return out
}

// Len は、現在の一意なレコード数を返します。
func (rs *RecordSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.records)
}

// Dropped は、重複として破棄または置換された提示の件数を返します。
func (rs *RecordSet) Dropped() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.dropped
}

// completeness は、レコードの「完全さ」を埋まっているフィールド数で数えます。
// マージ方針の比較にのみ使用します。
func completeness(record *types.CandidateRecord) int {
	score := 0
	if record.Title != "" {
		score++
	}
	if record.Price != nil {
		score++
	}
	if record.Location != "" {
		score++
	}
	if record.Material != types.MaterialUnknown {
		score++
	}
	if record.VehicleType != types.VehicleUnknown {
		score++
	}
	if record.Size != nil {
		score++
	}
	if record.ImageCount > 0 {
		score++
	}
	return score
}

// sort の安定性に関する注意: Finalize は挿入順を返すため sort は不要だが、
// 決定的な出力が必要な呼び出し側のために補助関数を提供する。

// SortBySourceURL は、レコードをソースURL順に並べ替えます。
func SortBySourceURL(records []types.CandidateRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SourceURL < records[j].SourceURL
	})
}
