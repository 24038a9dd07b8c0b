package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Grid is a two dimensional sheet with a label column. Rows flagged as
// breaks are rendered as a single merged band.
type Grid struct {
	Sheet   string
	Title   string
	Corner  string
	Columns []string
	Rows    []GridRow
}

// GridRow is one labelled row of a Grid. Cells align with Grid.Columns.
type GridRow struct {
	Label string
	Break bool
	Cells []string
}

// XLSXExporter renders grids into an Excel workbook, one sheet per grid.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes every grid to its own sheet and returns the workbook bytes.
func (e *XLSXExporter) Render(grids []Grid) ([]byte, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newGridStyles(f)
	if err != nil {
		return nil, err
	}

	used := make(map[string]int, len(grids))
	for i, grid := range grids {
		name := sheetName(grid.Sheet, i, used)
		idx, err := f.NewSheet(name)
		if err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeGrid(f, name, grid, styles); err != nil {
			return nil, err
		}
	}
	if _, taken := used["sheet1"]; !taken {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

type gridStyles struct {
	title  int
	header int
	label  int
	body   int
	brk    int
}

func newGridStyles(f *excelize.File) (gridStyles, error) {
	var (
		s   gridStyles
		err error
	)
	border := []excelize.Border{
		{Type: "left", Color: "#BFBFBF", Style: 1},
		{Type: "right", Color: "#BFBFBF", Style: 1},
		{Type: "top", Color: "#BFBFBF", Style: 1},
		{Type: "bottom", Color: "#BFBFBF", Style: 1},
	}
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, fmt.Errorf("title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, fmt.Errorf("label style: %w", err)
	}
	if s.body, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    border,
	}); err != nil {
		return s, fmt.Errorf("body style: %w", err)
	}
	if s.brk, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#7F7F7F"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F2F2F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, fmt.Errorf("break style: %w", err)
	}
	return s, nil
}

func writeGrid(f *excelize.File, sheet string, grid Grid, styles gridStyles) error {
	lastCol := colName(len(grid.Columns))
	row := 1
	if grid.Title != "" {
		if err := f.SetCellValue(sheet, cell("A", row), grid.Title); err != nil {
			return err
		}
		if len(grid.Columns) > 0 {
			if err := f.MergeCell(sheet, cell("A", row), cell(lastCol, row)); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell("A", row), cell(lastCol, row), styles.title); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 16); err != nil {
		return err
	}
	if len(grid.Columns) > 0 {
		if err := f.SetColWidth(sheet, "B", lastCol, 28); err != nil {
			return err
		}
	}

	if err := f.SetCellValue(sheet, cell("A", row), grid.Corner); err != nil {
		return err
	}
	for i, column := range grid.Columns {
		if err := f.SetCellValue(sheet, cell(colName(i+1), row), column); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cell("A", row), cell(lastCol, row), styles.header); err != nil {
		return err
	}
	row++

	for _, r := range grid.Rows {
		if err := f.SetCellValue(sheet, cell("A", row), r.Label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("A", row), cell("A", row), styles.label); err != nil {
			return err
		}
		if len(grid.Columns) == 0 {
			row++
			continue
		}
		if r.Break {
			if err := f.SetCellValue(sheet, cell("B", row), "BREAK"); err != nil {
				return err
			}
			if len(grid.Columns) > 1 {
				if err := f.MergeCell(sheet, cell("B", row), cell(lastCol, row)); err != nil {
					return err
				}
			}
			if err := f.SetCellStyle(sheet, cell("B", row), cell(lastCol, row), styles.brk); err != nil {
				return err
			}
			row++
			continue
		}
		lines := 1
		for i := range grid.Columns {
			value := ""
			if i < len(r.Cells) {
				value = r.Cells[i]
			}
			if n := strings.Count(value, "\n") + 1; n > lines {
				lines = n
			}
			if err := f.SetCellValue(sheet, cell(colName(i+1), row), value); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell("B", row), cell(lastCol, row), styles.body); err != nil {
			return err
		}
		if err := f.SetRowHeight(sheet, row, float64(15*lines)); err != nil {
			return err
		}
		row++
	}
	return nil
}

const maxSheetName = 31

// sheetName applies Excel's 31 character limit and keeps names unique.
// Excel compares sheet names case-insensitively, so used is keyed by the
// lowercased name.
func sheetName(name string, idx int, used map[string]int) string {
	name = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")").Replace(strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	base := truncateRunes(name, maxSheetName)
	baseKey := strings.ToLower(base)
	for n := used[baseKey]; ; n++ {
		candidate := base
		if n > 0 {
			suffix := fmt.Sprintf(" (%d)", n+1)
			candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
		}
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[baseKey] = n + 1
			used[key] = 1
			return candidate
		}
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
