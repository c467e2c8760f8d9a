// Package pubdate はフィード中の様々な形式の日時文字列を、
// 文字列比較で時系列順に並ぶUTCのISO-8601形式に正規化する。
package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout は正規化後の出力形式。秒精度に揃えることで辞書順と時系列順が一致する。
const Layout = "2006-01-02T15:04:05Z"

// layouts は試行するフォーマットの優先順リスト。最初に解析できたものを採用する。
var layouts = []string{
	// RFC 1123 形式: "Tue, 03 Jun 2008 11:05:30 GMT"
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	// 冗長なテキスト形式: "Sat Oct 11 08:31:57 GMT 2025"
	time.UnixDate,
	"Mon Jan _2 15:04:05 -0700 2006",
	// ISO-8601 オフセット付き（[Zone] 接尾辞は事前に除去する）。小数秒も受け付ける。
	time.RFC3339,
	// ISO-8601 ミリ秒と数値オフセット: "2024-06-05T10:00:00.000+0000"
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	// ISO-8601 リテラルZ
	"2006-01-02T15:04:05Z",
}

// fallbackLayouts は上記で解析できなかった場合の最終手段。タイムゾーンのないものはUTCとみなす。
var fallbackLayouts = []string{
	time.RFC822,
	time.RFC822Z,
	"Mon, 02 Jan 2006 15:04 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// zoneSuffix は "2024-06-05T12:00:00+02:00[Europe/Paris]" の [Zone] 部分。
var zoneSuffix = regexp.MustCompile(`\[[^\]]*\]$`)

// utcAliases はオフセット0として扱ってよい略称。数値オフセットやゾーンなしの場合、名前は空かUTCになる。
var utcAliases = map[string]bool{
	"":    true,
	"UTC": true,
	"GMT": true,
	"UT":  true,
	"Z":   true,
}

// abbreviationOffsets はタイムゾーン略称のオフセット（秒）。
// time.Parseは実行環境のローカルゾーンで解決できない略称をオフセット0として扱うため補正に使う。
// 重複する略称（CST, IST）はRFC 822の北米、インド標準時を採用する。
var abbreviationOffsets = map[string]int{
	// 北米
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"AKST": -9 * 3600,
	"AKDT": -8 * 3600,
	"HST":  -10 * 3600,
	"AST":  -4 * 3600,
	"ADT":  -3 * 3600,
	"NST":  -(3*3600 + 30*60),
	"NDT":  -(2*3600 + 30*60),
	// 南米
	"BRT": -3 * 3600,
	"ART": -3 * 3600,
	// ヨーロッパ
	"WET":  0,
	"WEST": 1 * 3600,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"MET":  1 * 3600,
	"MEST": 2 * 3600,
	"EET":  2 * 3600,
	"EEST": 3 * 3600,
	"MSK":  3 * 3600,
	// アフリカ
	"WAT":  1 * 3600,
	"CAT":  2 * 3600,
	"SAST": 2 * 3600,
	"EAT":  3 * 3600,
	// アジア
	"PKT": 5 * 3600,
	"IST": 5*3600 + 30*60,
	"ICT": 7 * 3600,
	"WIB": 7 * 3600,
	"HKT": 8 * 3600,
	"SGT": 8 * 3600,
	"PHT": 8 * 3600,
	"JST": 9 * 3600,
	"KST": 9 * 3600,
	// オセアニア
	"AWST": 8 * 3600,
	"ACST": 9*3600 + 30*60,
	"ACDT": 10*3600 + 30*60,
	"AEST": 10 * 3600,
	"AEDT": 11 * 3600,
	"NZST": 12 * 3600,
	"NZDT": 13 * 3600,
}

// Normalize は日時文字列をUTCのISO-8601形式（"2024-06-05T10:00:00Z"）に変換する。
// 空文字列や解析できない文字列の場合は空文字列を返す。パニックもエラーも発生しない。
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	t, ok := Parse(s)
	if !ok {
		return ""
	}
	return t.UTC().Format(Layout)
}

// Parse は日時文字列を解析する。解析できなかった場合はokがfalseになる。
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = zoneSuffix.ReplaceAllString(s, "")

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return fixAbbreviation(t)
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return fixAbbreviation(t)
		}
	}
	return parseEpoch(s)
}

// fixAbbreviation は略称だけでオフセットが解決されなかった時刻を補正する。
// オフセットが分からない略称の場合はokがfalseになる。
func fixAbbreviation(t time.Time) (time.Time, bool) {
	name, offset := t.Zone()
	if offset != 0 {
		return t, true
	}
	name = strings.ToUpper(name)
	if utcAliases[name] {
		return t, true
	}
	known, ok := abbreviationOffsets[name]
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.FixedZone(name, known)), true
}

// parseEpoch はUNIX時刻（秒またはミリ秒）を解析する。
func parseEpoch(s string) (time.Time, bool) {
	if len(s) < 9 || len(s) > 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	if len(s) > 10 {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}
