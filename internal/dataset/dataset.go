// Package dataset reads indicator tables and writes classification results
// as CSV.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"bioclas/internal/fuzzy"
	"bioclas/internal/holdridge"
)

// Output columns appended to every input row.
var ResultColumns = []string{"Z1", "Z2", "Z3", "r", "g", "b", "error"}

// DefaultHeader is written when points carry no source record.
var DefaultHeader = []string{"Longitud", "Latitud", "ABT", "APP", "PER"}

var ErrMissingColumn = errors.New("missing required column")

// column aliases, lower case
var aliases = map[string]string{
	"longitud": "lon", "longitude": "lon", "lon": "lon", "x": "lon",
	"latitud": "lat", "latitude": "lat", "lat": "lat", "y": "lat",
	"abt": "abt", "app": "app", "app (mm)": "app", "per": "per",
}

// Point is one input row.
type Point struct {
	Row       int // 1-based data row, header excluded
	Longitude float64
	Latitude  float64
	holdridge.Indicators

	Fields []string // raw record in header order; nil for synthetic points
}

// Dataset is a parsed indicator table.
type Dataset struct {
	Header    []string
	Delimiter rune
	Points    []Point
}

// Result pairs a point with its outcome. Color is set from the
// classification or, for a failed row, from the configured floor colour.
type Result struct {
	Point          Point
	Classification *holdridge.Classification
	Color          *fuzzy.RGB
	Err            error
}

// ReadPoints parses a CSV table with a header row. The delimiter is ';'
// when the header uses it and ',' otherwise. Numbers may use a decimal
// comma. Empty or unparsable cells become NaN. ABT and APP columns are
// required; PER is derived later when absent.
func ReadPoints(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read header: %w", err)
	}
	delim := ','
	if line, _, _ := bytes.Cut(first, []byte{'\n'}); bytes.ContainsRune(line, ';') {
		delim = ';'
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = h
		if key, ok := aliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	for _, req := range []string{"abt", "app"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("column %s: %w", strings.ToUpper(req), ErrMissingColumn)
		}
	}

	ds := &Dataset{Header: header, Delimiter: delim}
	cell := func(rec []string, key string) float64 {
		i, ok := cols[key]
		if !ok || i >= len(rec) {
			return math.NaN()
		}
		return ParseNumber(rec[i])
	}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		ds.Points = append(ds.Points, Point{
			Row:       row,
			Longitude: cell(rec, "lon"),
			Latitude:  cell(rec, "lat"),
			Indicators: holdridge.Indicators{
				ABT: cell(rec, "abt"),
				APP: cell(rec, "app"),
				PER: cell(rec, "per"),
			},
			Fields: rec,
		})
	}
	return ds, nil
}

// ParseNumber parses a decimal with either '.' or ',' as separator.
// Anything unparsable is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// WriteResults writes one row per result: the source record (or the default
// columns for synthetic points) followed by ResultColumns. header may be nil.
func WriteResults(w io.Writer, header []string, delim rune, results []Result) error {
	if delim == 0 {
		delim = ','
	}
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if header == nil {
		header = DefaultHeader
	}
	if err := cw.Write(append(append([]string(nil), header...), ResultColumns...)); err != nil {
		return err
	}
	for _, r := range results {
		fields := r.Point.Fields
		if fields == nil {
			fields = defaultFields(r.Point)
		}
		if err := cw.Write(append(append([]string(nil), fields...), resultFields(r)...)); err != nil {
			return fmt.Errorf("row %d: %w", r.Point.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func resultFields(r Result) []string {
	out := make([]string, len(ResultColumns))
	if r.Classification != nil {
		for i := 0; i < 3; i++ {
			out[i] = r.Classification.Zone(i)
		}
	}
	if r.Color != nil {
		out[3] = strconv.Itoa(int(r.Color.R))
		out[4] = strconv.Itoa(int(r.Color.G))
		out[5] = strconv.Itoa(int(r.Color.B))
	}
	if r.Err != nil {
		out[6] = r.Err.Error()
	}
	return out
}

func defaultFields(p Point) []string {
	return []string{
		formatNumber(p.Longitude),
		formatNumber(p.Latitude),
		formatNumber(p.ABT),
		formatNumber(p.APP),
		formatNumber(p.PER),
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
