package inventory

import (
	"fmt"
	"io"

	"aanganwadi/pkg/models"

	"github.com/xuri/excelize/v2"
)

const stockSheet = "Stock"

var exportHeader = []any{
	"Item ID", "Type", "Name", "Category", "Age group", "Status",
	"Total quantity", "Allocated quantity", "Available quantity", "Minimum stock",
	"Total amount", "Allocated amount", "Available amount",
	"Location", "Source", "Last updated",
}

// WriteStockSheet renders records as a single-sheet workbook.
func WriteStockSheet(w io.Writer, records []models.InventoryRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(stockSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			rec.ItemCode, string(rec.ItemType), rec.ItemName, rec.Category, rec.AgeGroup, string(rec.Status),
			rec.TotalQuantity, rec.AllocatedQuantity, rec.AvailableQuantity, rec.MinimumStock,
			rec.TotalAmount.InexactFloat64(), rec.AllocatedAmount.InexactFloat64(), rec.AvailableAmount.InexactFloat64(),
			rec.Location, rec.SourceType, rec.LastUpdated.Format("2006-01-02 15:04"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
