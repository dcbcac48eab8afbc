package generate_excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"factory-dashboard/internal/storage"
)

// Sheet is a table ready to be written: headers plus rows of cell values.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// GenerateExcel пишет один лист с жирной шапкой и закреплённой первой строкой.
func GenerateExcel(sheet Sheet) ([]byte, error) {
	const op = "service.generate_excel.GenerateExcel"

	f := excelize.NewFile()
	defer f.Close()

	name := sheet.Name
	if name == "" {
		name = "Report"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: style: %w", op, err)
	}

	for i, h := range sheet.Headers {
		if err := f.SetCellValue(name, cellName(i+1, 1), h); err != nil {
			return nil, fmt.Errorf("%s: header %s: %w", op, h, err)
		}
	}
	if len(sheet.Headers) > 0 {
		lastCol := cellName(len(sheet.Headers), 1)
		if err := f.SetCellStyle(name, "A1", lastCol, headerStyle); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	for rowIdx, row := range sheet.Rows {
		for colIdx, v := range row {
			if err := f.SetCellValue(name, cellName(colIdx+1, rowIdx+2), v); err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", op, rowIdx+2, err)
			}
		}
	}

	f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
	})

	if len(sheet.Headers) > 0 {
		lastColName, _ := excelize.ColumnNumberToName(len(sheet.Headers))
		f.SetColWidth(name, "A", lastColName, 16)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// ReadRows reads the first sheet of a workbook into header-keyed rows.
// Every header in required must be present, otherwise storage.ErrMissingHeaders
// is returned with the missing names. Blank rows are skipped.
func ReadRows(r io.Reader, required []string) ([]map[string]string, error) {
	const op = "service.generate_excel.ReadRows"

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", op, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets: %w", op, storage.ErrMissingHeaders)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: read rows: %w", op, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty sheet: %w", op, storage.ErrMissingHeaders)
	}

	headers := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
		present[headers[i]] = true
	}

	var missing []string
	for _, h := range required {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, strings.Join(missing, ", "), storage.ErrMissingHeaders)
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		blank := true
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			rec[headers[i]] = cell
		}
		if blank {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
