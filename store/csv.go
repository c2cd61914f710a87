// store/csv.go
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/zestra/zdmt/series"
)

// ReadPointsCSV parses date,value rows into a series. A header row of
// "date,value" is skipped if present; an empty value cell is a null point.
func ReadPointsCSV(r io.Reader) (series.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	var out series.Series
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "date" {
			continue
		}

		t, err := time.Parse(series.DateFormat, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %w", line, rec[0], err)
		}
		p := series.Point{Date: t}
		if rec[1] != "" {
			v, err := strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", line, rec[1], err)
			}
			p.Value = &v
		}
		out = append(out, p)
	}
	return series.New(out...), nil
}

// WritePointsCSV writes a series as date,value rows with a header. Null
// points get an empty value cell.
func WritePointsCSV(w io.Writer, s series.Series) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, p := range s {
		val := ""
		if p.Value != nil {
			val = strconv.FormatFloat(*p.Value, 'f', -1, 64)
		}
		if err := cw.Write([]string{p.Date.Format(series.DateFormat), val}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
