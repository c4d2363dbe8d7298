package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const reportSheet = "Inventory"

// InventoryReportRow is one product line of the inventory report.
type InventoryReportRow struct {
	Name          string
	Category      string
	Brand         string
	Color         string
	Supplier      string
	Quantity      decimal.Decimal
	MinStock      decimal.Decimal
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	Value         decimal.Decimal
	NeedsRestock  bool
}

var reportHeader = []interface{}{
	"Name", "Category", "Brand", "Color", "Supplier",
	"Quantity", "Min stock", "Purchase price", "Sale price", "Inventory value", "Restock",
}

// WriteInventoryReport renders rows as an xlsx workbook with a totals line.
func WriteInventoryReport(w io.Writer, rows []InventoryReportRow, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A1", "K1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	total := decimal.Zero
	for i, r := range rows {
		restock := ""
		if r.NeedsRestock {
			restock = "YES"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.Name, r.Category, r.Brand, r.Color, r.Supplier,
			r.Quantity.InexactFloat64(), r.MinStock.InexactFloat64(),
			r.PurchasePrice.InexactFloat64(), r.SalePrice.InexactFloat64(), r.Value.InexactFloat64(),
			restock,
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		total = total.Add(r.Value)
	}

	last := len(rows) + 1
	if len(rows) > 0 {
		if err := f.SetCellStyle(reportSheet, "H2", fmt.Sprintf("J%d", last), moneyStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	totalRow := last + 2
	if err := f.SetCellValue(reportSheet, fmt.Sprintf("I%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(reportSheet, fmt.Sprintf("J%d", totalRow), total.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, fmt.Sprintf("I%d", totalRow), fmt.Sprintf("J%d", totalRow), headerStyle); err != nil {
		return err
	}
	if err := f.SetCellValue(reportSheet, fmt.Sprintf("A%d", totalRow), "Generated "+generatedAt.Format("2006-01-02 15:04")); err != nil {
		return err
	}

	if err := f.SetColWidth(reportSheet, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "B", "K", 16); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
