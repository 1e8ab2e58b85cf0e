package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func writeWorkbook(t *testing.T, dir, name string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for sheetName, rows := range sheets {
		if first {
			f.SetSheetName("Sheet1", sheetName)
			first = false
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				t.Fatalf("creating sheet %s: %v", sheetName, err)
			}
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
				t.Fatalf("writing row: %v", err)
			}
		}
	}
	if err := f.SaveAs(filepath.Join(dir, name)); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "a,b\n1,2\n")
	writeFile(t, dir, "a.csv", "a,b\n1,2\n")
	writeFile(t, dir, "notas.txt", "ignored")
	writeFile(t, dir, "~$vendas.xlsx", "office lock file")
	writeFile(t, dir, ".hidden.csv", "hidden")

	source := NewFolderSource(dir, nil)
	files, err := source.ListFiles(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, files, "sorted, supported extensions only")
}

func TestListFilesMissingDir(t *testing.T) {
	source := NewFolderSource("/nonexistent/path", nil)
	_, err := source.ListFiles(context.Background())
	assert.Error(t, err)
}

func TestFetchSheetsCSVCommaDelimiter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendas.csv", "Data,Produto,Quantidade\n05/01/2024,Mouse,2\n")

	source := NewFolderSource(dir, nil)
	sheets, err := source.FetchSheets(context.Background(), []string{"vendas.csv"})
	assert.NoError(t, err)

	if assert.Len(t, sheets, 1) {
		assert.Equal(t, "vendas.csv", sheets[0].File)
		assert.Equal(t, "vendas", sheets[0].Name, "CSV sheet is named after the file")
		assert.Equal(t, []string{"Data", "Produto", "Quantidade"}, sheets[0].Headers)
		assert.Equal(t, [][]string{{"05/01/2024", "Mouse", "2"}}, sheets[0].Rows)
	}
}

func TestFetchSheetsCSVSemicolonDelimiter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendas.csv", "Data;Produto;Valor\n05/01/2024;Mouse;R$ 25,00\n")

	source := NewFolderSource(dir, nil)
	sheets, err := source.FetchSheets(context.Background(), []string{"vendas.csv"})
	assert.NoError(t, err)

	if assert.Len(t, sheets, 1) {
		assert.Equal(t, []string{"Data", "Produto", "Valor"}, sheets[0].Headers)
		assert.Equal(t, "R$ 25,00", sheets[0].Rows[0][2], "comma inside a value survives semicolon sniffing")
	}
}

func TestFetchSheetsCSVHeaderOnlySkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vazio.csv", "Data,Produto\n")

	source := NewFolderSource(dir, nil)
	sheets, err := source.FetchSheets(context.Background(), []string{"vazio.csv"})
	assert.NoError(t, err)
	assert.Empty(t, sheets)
}

func TestFetchSheetsWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "vendas.xlsx", map[string][][]interface{}{
		"Vendas": {
			{"Data", "Produto", "Quantidade"},
			{"05/01/2024", "Mouse", "2"},
			{"06/01/2024", "Teclado", "1"},
		},
	})

	source := NewFolderSource(dir, nil)
	sheets, err := source.FetchSheets(context.Background(), []string{"vendas.xlsx"})
	assert.NoError(t, err)

	if assert.Len(t, sheets, 1) {
		assert.Equal(t, "Vendas", sheets[0].Name)
		assert.Equal(t, []string{"Data", "Produto", "Quantidade"}, sheets[0].Headers)
		assert.Len(t, sheets[0].Rows, 2)
	}
}

func TestFetchSheetsWorkbookSkipsShortSheets(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "vendas.xlsx", map[string][][]interface{}{
		"Capa": {
			{"Relatório de Vendas"},
		},
	})

	source := NewFolderSource(dir, nil)
	sheets, err := source.FetchSheets(context.Background(), []string{"vendas.xlsx"})
	assert.NoError(t, err)
	assert.Empty(t, sheets, "sheets without data rows are dropped")
}

func TestFetchSheetsUnknownFile(t *testing.T) {
	source := NewFolderSource(t.TempDir(), nil)
	_, err := source.FetchSheets(context.Background(), []string{"missing.xlsx"})
	assert.Error(t, err)
}
