package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// ExportOrdersToExcel writes every order into reports/<filename>.xlsx and
// returns the file path. Shoe, size and color names are resolved from the
// catalog so the report is readable without the database at hand.
func (s *PostgresStorage) ExportOrdersToExcel(ctx context.Context, filename string) (string, error) {
	const query = `
        SELECT o.id, o.chat_id, o.address, o.entrance, o.apartment,
               o.payment_method, o.status, o.created_at,
               sh.name AS shoe_name, sh.price, sz.value AS size_value, c.name AS color_name
        FROM orders o
        JOIN shoes sh ON sh.id = o.shoe_id
        JOIN sizes sz ON sz.id = o.size_id
        JOIN colors c ON c.id = o.color_id
        ORDER BY o.created_at DESC
    `

	type orderRow struct {
		Order
		ShoeName  string `db:"shoe_name"`
		Price     int64  `db:"price"`
		SizeValue string `db:"size_value"`
		ColorName string `db:"color_name"`
	}

	var orders []orderRow
	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		return "", fmt.Errorf("failed to fetch orders: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Orders")
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Chat ID", "Model", "Size", "Color", "Price",
		"Address", "Entrance", "Apartment", "Payment", "Status", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Orders", cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle("Orders", "A1", "L1", style)

	for row, order := range orders {
		data := []interface{}{
			order.ID,
			order.ChatID,
			order.ShoeName,
			order.SizeValue,
			order.ColorName,
			order.Price,
			order.Address,
			order.Entrance.String,
			order.Apartment.String,
			order.PaymentMethod,
			order.Status,
			order.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue("Orders", cell, value)
		}
	}

	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filepath := fmt.Sprintf("reports/%s.xlsx", filename)
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return filepath, nil
}
