package ports

import "context"

// Sheet is one tabular sheet pulled from a workbook or CSV file. Rows
// hold raw cell text exactly as the source stored it; all parsing
// happens downstream.
type Sheet struct {
	File    string
	Name    string
	Headers []string
	Rows    [][]string
}

// SheetSource provides read access to the spreadsheet corpus
type SheetSource interface {
	// ListFiles returns the loadable file names, sorted
	ListFiles(ctx context.Context) ([]string, error)

	// FetchSheets reads every sheet from the named files, in file order
	FetchSheets(ctx context.Context, files []string) ([]Sheet, error)
}
