package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mcclellann/creditos/pkg/models"
)

const sheetName = "Créditos"

// Write renders the credit book as a styled xlsx: one row per credit in the
// canonical column order, every cell centered, data rows filled with the
// color of their status and column widths fitted to the longest cell.
func Write(w io.Writer, credits []*models.Credit) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	// One fill style per status that has a color.
	fills := make(map[models.Status]int)
	for _, st := range []models.Status{
		models.StatusPaid,
		models.StatusOverdue,
		models.StatusDueToday,
		models.StatusDueSoon,
		models.StatusCurrent,
	} {
		color := st.FillColor()
		if color == "" {
			continue
		}
		id, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("create %s style: %w", st, err)
		}
		fills[st] = id
	}

	widths := make([]int, len(Header))
	headerRow := make([]interface{}, len(Header))
	for i, h := range Header {
		headerRow[i] = h
		widths[i] = len([]rune(h))
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, c := range credits {
		rowNum := i + 2
		cells := []interface{}{
			formatDate(c.OriginDate),
			c.Client,
			c.Principal.String(),
			string(c.Frequency),
			formatDate(c.NextDueDate),
			c.PaidToDate.String(),
			c.Balance.String(),
			string(c.Status),
		}
		start, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, start, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}

		for col, v := range cells {
			if n := len([]rune(fmt.Sprint(v))); n > widths[col] {
				widths[col] = n
			}
		}

		style := centered
		if id, ok := fills[c.Status]; ok {
			style = id
		}
		end, err := excelize.CoordinatesToCellName(len(cells), rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, start, end, style); err != nil {
			return fmt.Errorf("style row %d: %w", rowNum, err)
		}
	}

	headerEnd, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", headerEnd, centered); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, name, name, float64(w+2)); err != nil {
			return fmt.Errorf("set width of %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
