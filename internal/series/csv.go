package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

// dateLayouts are tried in order when parsing the date column
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate parses a calendar date in any of the accepted layouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ReadCSV reads rows from a CSV with at least "date" and "close" columns.
// Column names are matched case-insensitively. Rows with an unparseable date
// or close are returned with a zero time or nil close so Normalize can count them.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.WrapError(core.ErrInvalidInput, errors.New("empty csv"))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, err)
	}

	dateCol, closeCol, volumeCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		case "volume":
			volumeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("csv header must contain date and close columns, got %v", header))
	}

	var rows []RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidInput, err)
		}

		var row RawRow
		if dateCol < len(rec) {
			if t, err := ParseDate(rec[dateCol]); err == nil {
				row.Time = t
			}
		}
		if closeCol < len(rec) {
			row.Close = parseFloat(rec[closeCol])
		}
		if volumeCol >= 0 && volumeCol < len(rec) {
			row.Volume = parseFloat(rec[volumeCol])
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
