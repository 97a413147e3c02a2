package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gobrittle/domain/core"
	"gobrittle/domain/series"
)

// WriteRecording writes samples in the layout the reader expects. The
// format follows the extension; NaN channel values become empty cells.
func WriteRecording(path string, cfg ReaderConfig, samples []series.RawSample) error {
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "timestamp"
	}
	header := append([]string{cfg.TimestampColumn}, cfg.Channels...)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSV(path, header, samples)
	case ".xlsx", ".xlsm":
		return writeExcel(path, cfg.Sheet, header, samples)
	default:
		return fmt.Errorf("%w: unsupported recording format %q", core.ErrInvalidSeries, ext)
	}
}

func writeExcel(path, sheet string, header []string, samples []series.RawSample) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return err
	}

	for i, s := range samples {
		row := make([]interface{}, len(header))
		row[0] = s.Timestamp.UTC().Format(time.RFC3339)
		for c := 1; c < len(header); c++ {
			if v, ok := channelValue(s, c-1); ok {
				row[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeCSV(path string, header []string, samples []series.RawSample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, s := range samples {
		record[0] = s.Timestamp.UTC().Format(time.RFC3339)
		for c := 1; c < len(header); c++ {
			record[c] = ""
			if v, ok := channelValue(s, c-1); ok {
				record[c] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func channelValue(s series.RawSample, i int) (float64, bool) {
	if i >= len(s.Values) {
		return 0, false
	}
	v := s.Values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
