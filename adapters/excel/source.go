// Package excel reads spreadsheet files from a local folder into raw
// sheets. It handles .xlsx workbooks through excelize and .csv files
// with comma or semicolon delimiters. Cells are returned as raw text;
// all normalization and parsing happens in the ingest pipeline.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"alphabot/internal"
	apperrors "alphabot/internal/errors"
	"alphabot/ports"
)

// FolderSource lists and reads every supported spreadsheet in one
// directory.
type FolderSource struct {
	dir    string
	logger *internal.Logger
}

func NewFolderSource(dir string, logger *internal.Logger) *FolderSource {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &FolderSource{dir: dir, logger: logger}
}

// ListFiles returns the .xlsx and .csv file names in the folder,
// sorted. Hidden and temporary office files are skipped.
func (s *FolderSource) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Wrapf(err, "reading data folder %s", s.dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".csv":
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// FetchSheets reads every sheet of the named files. Sheets with fewer
// than two rows carry no data and are dropped here.
func (s *FolderSource) FetchSheets(ctx context.Context, files []string) ([]ports.Sheet, error) {
	var sheets []ports.Sheet
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, file)
		var (
			fromFile []ports.Sheet
			err      error
		)
		switch strings.ToLower(filepath.Ext(file)) {
		case ".csv":
			fromFile, err = s.readCSV(file, path)
		case ".xlsx":
			fromFile, err = s.readWorkbook(file, path)
		default:
			err = fmt.Errorf("unsupported file type: %s", file)
		}
		if err != nil {
			return nil, apperrors.Wrapf(err, "reading %s", file)
		}
		sheets = append(sheets, fromFile...)
	}
	return sheets, nil
}

func (s *FolderSource) readWorkbook(file, path string) ([]ports.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []ports.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		if len(rows) < 2 {
			s.logger.Debug("skipping sheet %s/%s: no data rows", file, name)
			continue
		}
		sheets = append(sheets, ports.Sheet{
			File:    file,
			Name:    name,
			Headers: rows[0],
			Rows:    rows[1:],
		})
	}
	return sheets, nil
}

// readCSV treats the whole file as one sheet named after the file. The
// delimiter is sniffed from the header line, since pt-BR exports
// commonly use semicolons.
func (s *FolderSource) readCSV(file, path string) ([]ports.Sheet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.Comma = sniffDelimiter(string(raw))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	if len(rows) < 2 {
		s.logger.Debug("skipping %s: no data rows", file)
		return nil, nil
	}

	name := strings.TrimSuffix(file, filepath.Ext(file))
	return []ports.Sheet{{
		File:    file,
		Name:    name,
		Headers: rows[0],
		Rows:    rows[1:],
	}}, nil
}

// sniffDelimiter picks semicolon when the first line carries more
// semicolons than commas.
func sniffDelimiter(content string) rune {
	firstLine := content
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		firstLine = content[:i]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}
