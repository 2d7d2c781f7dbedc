package calibration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "fuel-station-monitor/pkg/errors"
)

var (
	measurementHeaders = []string{"mm", "measurement", "dip", "depth", "height"}
	volumeHeaders      = []string{"liters", "litres", "ltr", "volume", "liter", "litre"}
)

// Parse reads a dip chart in delimited text form. The header row must name a
// measurement column and a volume column; rows that do not parse are skipped.
func Parse(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dip chart: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParseError("dip_chart", "", "empty file", nil)
		}
		return nil, apperrors.NewParseError("dip_chart", "", "unreadable header", err)
	}

	mmCol, volCol := locateColumns(header)
	if mmCol < 0 || volCol < 0 {
		return nil, apperrors.NewParseError("dip_chart", strings.Join(header, ","),
			"header must contain a millimetre and a litre column", nil)
	}

	var points []Point
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		if mmCol >= len(record) || volCol >= len(record) {
			continue
		}

		mm, errMm := strconv.ParseFloat(strings.TrimSpace(record[mmCol]), 64)
		vol, errVol := strconv.ParseFloat(strings.TrimSpace(record[volCol]), 64)
		if errMm != nil || errVol != nil || mm < 0 || vol < 0 {
			continue
		}
		points = append(points, Point{Measurement: mm, Volume: vol})
	}

	return NewTable(points)
}

func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}

	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func locateColumns(header []string) (int, int) {
	mmCol, volCol := -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if mmCol < 0 && matchesAny(name, measurementHeaders) {
			mmCol = i
			continue
		}
		if volCol < 0 && matchesAny(name, volumeHeaders) {
			volCol = i
		}
	}
	return mmCol, volCol
}

func matchesAny(name string, candidates []string) bool {
	for _, c := range candidates {
		if name == c || strings.Contains(name, c) {
			return true
		}
	}
	return false
}
