package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
)

const reportsRoot = "reports"

var safeSegment = regexp.MustCompile(`^[A-Za-z0-9^._-]{1,64}$`)

// ReportStore archives backtest reports as JSON with the output table as CSV
// alongside, under reports/<symbol>/<run_id>.{json,csv}.
type ReportStore struct {
	storage Storage
}

// NewReportStore creates a report store on top of a storage backend
func NewReportStore(storage Storage) *ReportStore {
	return &ReportStore{storage: storage}
}

func reportPath(symbol, runID, ext string) (string, error) {
	for _, seg := range []string{symbol, runID} {
		if !safeSegment.MatchString(seg) || seg == "." || seg == ".." {
			return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid report path segment %q", seg))
		}
	}
	return path.Join(reportsRoot, symbol, runID+ext), nil
}

// Save writes the report and its table, returning the JSON path. Archived
// runs are immutable, so saving an existing run id fails.
func (s *ReportStore) Save(ctx context.Context, report *backtest.Report) (string, error) {
	if report == nil || report.Result == nil {
		return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("empty report"))
	}

	jsonPath, err := reportPath(report.Result.Symbol, report.RunID, ".json")
	if err != nil {
		return "", err
	}
	csvPath, _ := reportPath(report.Result.Symbol, report.RunID, ".csv")

	exists, err := s.storage.Exists(ctx, jsonPath)
	if err != nil {
		return "", err
	}
	if exists {
		return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("run %s already archived", report.RunID))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding report: %w", err))
	}

	var table bytes.Buffer
	if err := backtest.WriteCSV(&table, report.Result.Rows); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding table: %w", err))
	}

	if err := s.storage.Write(ctx, csvPath, table.Bytes()); err != nil {
		return "", err
	}
	if err := s.storage.Write(ctx, jsonPath, data); err != nil {
		return "", err
	}
	return jsonPath, nil
}

// Load reads a stored report
func (s *ReportStore) Load(ctx context.Context, symbol, runID string) (*backtest.Report, error) {
	p, err := reportPath(symbol, runID, ".json")
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Read(ctx, p)
	if err != nil {
		return nil, err
	}

	var report backtest.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding report %s: %w", p, err))
	}
	return &report, nil
}

// List returns the run ids stored for a symbol, sorted
func (s *ReportStore) List(ctx context.Context, symbol string) ([]string, error) {
	if !safeSegment.MatchString(symbol) {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid symbol %q", symbol))
	}

	paths, err := s.storage.List(ctx, path.Join(reportsRoot, symbol)+"/")
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			ids = append(ids, strings.TrimSuffix(path.Base(p), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a stored report and its table
func (s *ReportStore) Delete(ctx context.Context, symbol, runID string) error {
	for _, ext := range []string{".json", ".csv"} {
		p, err := reportPath(symbol, runID, ext)
		if err != nil {
			return err
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
