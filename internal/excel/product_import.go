package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ProductImportRow is one product read from an import spreadsheet.
type ProductImportRow struct {
	Row           int
	Name          string
	Category      string
	Brand         string
	Color         string
	Supplier      string
	Quantity      decimal.Decimal
	MinStock      *decimal.Decimal
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
}

var headerAliases = map[string]string{
	"name":           "name",
	"product":        "name",
	"product name":   "name",
	"nombre":         "name",
	"producto":       "name",
	"category":       "category",
	"categoria":      "category",
	"categoría":      "category",
	"quantity":       "quantity",
	"qty":            "quantity",
	"stock":          "quantity",
	"cantidad":       "quantity",
	"purchase price": "purchase_price",
	"cost":           "purchase_price",
	"precio compra":  "purchase_price",
	"sale price":     "sale_price",
	"price":          "sale_price",
	"precio venta":   "sale_price",
	"brand":          "brand",
	"marca":          "brand",
	"color":          "color",
	"min stock":      "min_stock",
	"minimum stock":  "min_stock",
	"stock minimo":   "min_stock",
	"stock mínimo":   "min_stock",
	"supplier":       "supplier",
	"proveedor":      "supplier",
}

var requiredColumns = []string{"name", "category", "quantity", "purchase_price", "sale_price"}

// ParseProductRows reads the first sheet of an xlsx file. Blank-name rows are skipped.
func ParseProductRows(reader io.Reader) ([]ProductImportRow, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	colMap := mapColumns(rows[0])
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	result := make([]ProductImportRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, colMap["name"]))
		if name == "" {
			continue
		}
		line := index + 1

		row := ProductImportRow{
			Row:      line,
			Name:     name,
			Category: strings.TrimSpace(readCell(cells, colMap["category"])),
		}
		if row.Category == "" {
			return nil, fmt.Errorf("row %d: category is required", line)
		}
		if row.Quantity, err = parseDecimal(readCell(cells, colMap["quantity"])); err != nil {
			return nil, fmt.Errorf("row %d invalid quantity: %w", line, err)
		}
		if row.PurchasePrice, err = parseDecimal(readCell(cells, colMap["purchase_price"])); err != nil {
			return nil, fmt.Errorf("row %d invalid purchase_price: %w", line, err)
		}
		if row.SalePrice, err = parseDecimal(readCell(cells, colMap["sale_price"])); err != nil {
			return nil, fmt.Errorf("row %d invalid sale_price: %w", line, err)
		}
		if idx, ok := colMap["min_stock"]; ok {
			if raw := strings.TrimSpace(readCell(cells, idx)); raw != "" {
				v, err := parseDecimal(raw)
				if err != nil {
					return nil, fmt.Errorf("row %d invalid min_stock: %w", line, err)
				}
				row.MinStock = &v
			}
		}
		row.Brand = optional(cells, colMap, "brand")
		row.Color = optional(cells, colMap, "color")
		row.Supplier = optional(cells, colMap, "supplier")

		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("excel file has no valid data rows")
	}
	return result, nil
}

func optional(cells []string, colMap map[string]int, key string) string {
	idx, ok := colMap[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(readCell(cells, idx))
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := headerAliases[normalizeHeader(col)]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseDecimal accepts plain numbers and thousands separators such as 12,500.
func parseDecimal(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	value = strings.TrimPrefix(value, "$")
	value = strings.ReplaceAll(value, ",", "")
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	return d, nil
}
