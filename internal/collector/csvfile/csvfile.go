// Package csvfile serves price history from a directory of CSV files.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/newthinker/signaledge/internal/collector"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/series"
)

var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^._-]{1,20}$`)

// Source reads <dir>/<symbol>.csv
type Source struct {
	dir string
}

// New creates a source rooted at dir
func New(dir string) *Source {
	return &Source{dir: dir}
}

// NewFromConfig creates a source from generic collector settings
func NewFromConfig(cfg collector.Config) *Source {
	return New(cfg.Dir)
}

func (s *Source) Name() string {
	return "csv"
}

// Path returns the file a symbol is read from
func (s *Source) Path(symbol string) string {
	return filepath.Join(s.dir, symbol+".csv")
}

// FetchHistory reads and normalizes the symbol's file, then keeps rows within [start, end]
func (s *Source) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	if !validSymbol.MatchString(symbol) || symbol == "." || symbol == ".." {
		return core.PriceSeries{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	if err := ctx.Err(); err != nil {
		return core.PriceSeries{}, err
	}

	f, err := os.Open(s.Path(symbol))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.PriceSeries{}, core.WrapError(core.ErrNotFound, fmt.Errorf("no file for %s in %s", symbol, s.dir))
		}
		return core.PriceSeries{}, core.WrapError(core.ErrSourceFailed, err)
	}
	defer f.Close()

	rows, err := series.ReadCSV(f)
	if err != nil {
		return core.PriceSeries{}, err
	}

	out, _, err := series.Normalize(symbol, s.Name(), rows)
	if err != nil {
		return core.PriceSeries{}, err
	}
	return Clip(out, start, end)
}

// Clip keeps observations within [start, end]; zero bounds are open
func Clip(s core.PriceSeries, start, end time.Time) (core.PriceSeries, error) {
	kept := make([]core.PriceObservation, 0, len(s.Observations))
	for _, o := range s.Observations {
		if !start.IsZero() && o.Time.Before(start) {
			continue
		}
		if !end.IsZero() && o.Time.After(end) {
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData,
			fmt.Errorf("no observations for %s in requested range", s.Symbol))
	}
	s.Observations = kept
	return s, nil
}
