package adminkit

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// ExportXLSX writes rows as a spreadsheet with one column per visible column
// of desc under cfg. Hidden columns are never exported.
func ExportXLSX(w io.Writer, desc EntityDescriptor, cfg TableConfig, rows []Row) error {
	columns := cfg.VisibleColumns(desc.Columns)
	if len(columns) == 0 {
		return NewError(ErrInvalidDescriptor, "no visible columns to export").WithEntity(desc.Key)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(desc.Key)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		title := col.Title
		if title == "" {
			title = col.Key
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for r, row := range rows {
		for i, col := range columns {
			value, ok := cellValue(row[col.Key])
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string, bool, int, int32, int64, float32, float64, time.Time:
		return x, true
	default:
		return fmt.Sprint(x), true
	}
}

// sheetName makes key usable as a worksheet name.
func sheetName(key string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, key)
	if name == "" {
		name = "Export"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
