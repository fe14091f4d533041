package http

import (
	"io"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/tealeg/xlsx"
)

var orderSheetHeaders = []string{
	"Order ID", "Created At", "Status", "Customer", "Phone", "Email", "Address",
	"Zone", "Subtotal", "Delivery Charge", "Grand Total", "Payment Method",
}

// XLSXOrderSheet renders the admin order listing as an Excel workbook.
type XLSXOrderSheet struct{}

func (XLSXOrderSheet) Render(w io.Writer, orders []domain.AdminOrder) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return err
	}

	headerRow := sheet.AddRow()
	for _, h := range orderSheetHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetString(o.ID)
		row.AddCell().SetString(o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(o.Customer.Name)
		row.AddCell().SetString(o.Customer.Phone)
		row.AddCell().SetString(o.CustomerEmail)
		row.AddCell().SetString(o.Customer.Address)
		row.AddCell().SetString(o.DeliveryZone)
		row.AddCell().SetInt64(o.Subtotal)
		row.AddCell().SetInt64(o.DeliveryCharge)
		row.AddCell().SetInt64(o.GrandTotal)
		row.AddCell().SetString(string(o.PaymentMethod))
	}
	return file.Write(w)
}

var _ usecase.OrderSheetRenderer = XLSXOrderSheet{}
