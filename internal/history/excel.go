package history

import (
	"fmt"
	"io"

	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "History"

func WriteWorkbook(w io.Writer, entries []models.MovementLog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("unable to name sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, headerRow())
	for _, entry := range entries {
		rows = append(rows, Row(entry))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("unable to write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "H", 20); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("unable to write workbook: %w", err)
	}
	return nil
}
