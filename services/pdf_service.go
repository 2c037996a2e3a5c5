package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"drivncook/database"
)

const pdfCompanyHeader = "DRIV'N COOK"

// RenderInvoicePDF renders an invoice into a printable PDF document
func RenderInvoicePDF(invoice database.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, pdfCompanyHeader)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Facture %s", invoice.InvoiceNumber))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Franchise : %s", invoice.Franchise.CompanyName))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("SIRET : %s", invoice.Franchise.Siret))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date d'emission : %s", invoice.CreatedAt.Format("02/01/2006")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date d'echeance : %s", invoice.DueDate.Format("02/01/2006")))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 8, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Montant", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(120, 8, invoice.Description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%.2f EUR", invoice.Amount), "1", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%.2f EUR", invoice.Amount), "", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Statut : %s", invoice.PaymentStatus))
	if invoice.PaidDate != nil {
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Payee le : %s", invoice.PaidDate.Format("02/01/2006")))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderOrderPDF renders an order and its line items into a printable PDF,
// used for order transmission to the warehouses.
func RenderOrderPDF(order database.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, pdfCompanyHeader)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Bon de commande %s", order.OrderNumber))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Franchise : %s", order.Franchise.CompanyName))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date : %s", time.Now().Format("02/01/2006")))
	if order.RequestedDeliveryDate != nil {
		pdf.Ln(7)
		pdf.Cell(0, 7, fmt.Sprintf("Livraison souhaitee : %s", order.RequestedDeliveryDate.Format("02/01/2006")))
	}
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(70, 8, "Produit", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Quantite", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Prix unitaire", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Total ligne", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		name := item.Product.Name
		if name == "" {
			name = fmt.Sprintf("Produit #%d", item.ProductID)
		}
		pdf.CellFormat(70, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", item.TotalPrice), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(125, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, fmt.Sprintf("%.2f EUR", order.TotalAmount), "", 1, "R", false, 0, "")

	if order.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("Notes : %s", order.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
