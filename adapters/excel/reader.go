package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/ports"
)

// unixThreshold separates Excel serial dates from unix seconds
const unixThreshold = 1e8

// RecordingReader reads recordings from Excel or CSV files
type RecordingReader struct {
	cfg ReaderConfig
}

var _ ports.RecordingSource = (*RecordingReader)(nil)

// NewRecordingReader creates a reader for a column layout
func NewRecordingReader(cfg ReaderConfig) *RecordingReader {
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "timestamp"
	}
	if len(cfg.Layouts) == 0 {
		cfg.Layouts = DefaultLayouts
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &RecordingReader{cfg: cfg}
}

// ReadRecording reads the file at path; the format follows the extension
func (r *RecordingReader) ReadRecording(ctx context.Context, path string) ([]series.RawSample, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("recording not found: %s: %w", path, core.ErrNotFound)
	}

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = r.readExcel(path)
	default:
		return nil, fmt.Errorf("%w: unsupported recording format %q", core.ErrInvalidSeries, ext)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples, err := r.ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	log.Printf("[RecordingReader] %s: %d samples", filepath.Base(path), len(samples))
	return samples, nil
}

func (r *RecordingReader) readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// ParseRows converts a header row plus data rows into samples. Rows whose
// primary value is blank are skipped; a missing extra channel reads as NaN.
func (r *RecordingReader) ParseRows(rows [][]string) ([]series.RawSample, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", core.ErrInvalidSeries)
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	tsCol, ok := header[strings.ToLower(r.cfg.TimestampColumn)]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q column", core.ErrInvalidSeries, r.cfg.TimestampColumn)
	}

	channels := r.cfg.Channels
	if len(channels) == 0 {
		channels = []string{"value"}
	}
	cols := make([]int, len(channels))
	for c, name := range channels {
		col, ok := header[strings.ToLower(name)]
		if !ok && c == 0 {
			col, ok = header["value"]
		}
		if !ok {
			if c == 0 {
				return nil, fmt.Errorf("%w: missing %q column", core.ErrInvalidSeries, name)
			}
			col = -1
		}
		cols[c] = col
	}

	samples := make([]series.RawSample, 0, len(rows)-1)
	skipped := 0
	for i, row := range rows[1:] {
		if tsCol >= len(row) || strings.TrimSpace(row[tsCol]) == "" {
			skipped++
			continue
		}
		ts, err := r.parseTime(row[tsCol])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", core.ErrInvalidSeries, i+2, err)
		}

		values := make([]float64, len(cols))
		blank := false
		for c, col := range cols {
			values[c] = math.NaN()
			if col < 0 || col >= len(row) || strings.TrimSpace(row[col]) == "" {
				blank = blank || c == 0
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", core.ErrInvalidSeries, i+2, channels[c], err)
			}
			values[c] = v
		}
		if blank {
			skipped++
			continue
		}
		samples = append(samples, series.RawSample{Timestamp: ts, Values: values})
	}

	if skipped > 0 {
		log.Printf("[RecordingReader] skipped %d rows without a timestamp or primary value", skipped)
	}
	return samples, nil
}

// parseTime accepts the configured layouts, unix seconds or Excel serial dates
func (r *RecordingReader) parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range r.cfg.Layouts {
		if t, err := time.ParseInLocation(layout, raw, r.cfg.Location); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f >= unixThreshold {
			sec, frac := math.Modf(f)
			return time.Unix(int64(sec), int64(frac*1e9)).In(r.cfg.Location), nil
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, err
		}
		return t.Round(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
