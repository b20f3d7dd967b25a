package core

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/tealeg/xlsx"
)

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AddTableSheet appends a sheet with a header row and rows below it.
// Columns get max(len(header)+5, 15) characters width.
func AddTableSheet(file *xlsx.File, name string, headers []string, rows [][]string) (*xlsx.Sheet, error) {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, header := range headers {
		headerRow.AddCell().SetString(header)
	}
	for _, values := range rows {
		row := sheet.AddRow()
		for _, value := range values {
			row.AddCell().SetString(value)
		}
	}

	for i, header := range headers {
		width := utf8.RuneCountInString(header) + 5
		if width < 15 {
			width = 15
		}
		if err := sheet.SetColWidth(i, i, float64(width)); err != nil {
			return nil, err
		}
	}
	return sheet, nil
}

func WorkbookBytes(file *xlsx.File) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func GetHeaderIndexes(row *xlsx.Row) map[string]int {
	headers := make(map[string]int)
	for i, cell := range row.Cells {
		headers[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	return headers
}

// GetString returns the trimmed cell below header s, empty when header or cell is missing.
func GetString(r *xlsx.Row, headers map[string]int, s string) string {
	if val, ok := headers[s]; ok {
		if val < len(r.Cells) {
			return strings.TrimSpace(r.Cells[val].String())
		}
	}
	return ""
}

func IsEmptyExcelRow(r *xlsx.Row) bool {
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}
