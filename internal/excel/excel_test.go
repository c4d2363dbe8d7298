package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf := new(bytes.Buffer)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

func TestParseProductRows_AliasesAndOptionalColumns(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Nombre", "Categoría", "Cantidad", "Precio_Compra", "Precio Venta", "Marca", "Stock Minimo"},
		{"Camisa polo", "Camisas", "12", "18000", "$25,000", "Yazz", "3"},
		{"", "ignored", "1", "1", "2"},
		{"Gorra", "Accesorios", "4.5", "5000", "9000"},
	})

	rows, err := ParseProductRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Camisa polo", rows[0].Name)
	assert.Equal(t, "Camisas", rows[0].Category)
	assert.Equal(t, "Yazz", rows[0].Brand)
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, rows[0].SalePrice.Equal(decimal.NewFromInt(25000)))
	require.NotNil(t, rows[0].MinStock)
	assert.True(t, rows[0].MinStock.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 2, rows[0].Row)

	assert.Nil(t, rows[1].MinStock)
	assert.True(t, rows[1].Quantity.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 4, rows[1].Row)
}

func TestParseProductRows_MissingColumn(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"name", "category", "quantity", "sale_price"},
		{"Camisa", "Camisas", "1", "2"},
	})
	_, err := ParseProductRows(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purchase_price")
}

func TestParseProductRows_InvalidNumberReportsRow(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"name", "category", "quantity", "purchase_price", "sale_price"},
		{"Camisa", "Camisas", "abc", "1", "2"},
	})
	_, err := ParseProductRows(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2 invalid quantity")
}

func TestParseProductRows_NoDataRows(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"name", "category", "quantity", "purchase_price", "sale_price"},
	})
	_, err := ParseProductRows(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid data rows")
}

func TestWriteInventoryReport(t *testing.T) {
	rows := []InventoryReportRow{
		{
			Name: "Camisa polo", Category: "Camisas",
			Quantity: decimal.NewFromInt(10), MinStock: decimal.NewFromInt(5),
			PurchasePrice: decimal.NewFromInt(100), SalePrice: decimal.NewFromInt(150),
			Value: decimal.NewFromInt(1000),
		},
		{
			Name: "Gorra", Category: "Accesorios",
			Quantity: decimal.NewFromInt(2), MinStock: decimal.NewFromInt(5),
			PurchasePrice: decimal.NewFromInt(10), SalePrice: decimal.NewFromInt(20),
			Value: decimal.NewFromInt(20), NeedsRestock: true,
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteInventoryReport(buf, rows, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(reportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Camisa polo", name)

	restock, err := f.GetCellValue(reportSheet, "K3")
	require.NoError(t, err)
	assert.Equal(t, "YES", restock)

	label, err := f.GetCellValue(reportSheet, "I5")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
}
