package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

// DocumentGenerator genera el estado de cuenta en PDF
type DocumentGenerator struct {
	logger *logrus.Logger
}

// NewDocumentGenerator crea una nueva instancia del generador
func NewDocumentGenerator(logger *logrus.Logger) *DocumentGenerator {
	return &DocumentGenerator{
		logger: logger,
	}
}

// GenerateStatementPDF genera el estado de cuenta con los pedidos regulares pendientes del cliente
func (d *DocumentGenerator) GenerateStatementPDF(bill *models.CustomerBill, orders []models.Order, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Header
	pdf.SetFillColor(41, 128, 185)
	pdf.Rect(0, 0, 210, 40, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 24)
	pdf.Cell(190, 15, "ESTADO DE CUENTA")
	pdf.Ln(15)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(190, 8, fmt.Sprintf("Fecha: %s", generatedAt.Format("02/01/2006")))
	pdf.Ln(8)

	// Cliente
	pdf.SetTextColor(44, 62, 80)
	pdf.SetY(50)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(190, 8, "CLIENTE")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(190, 6, tr(bill.Customer.Name))
	pdf.Ln(6)
	if bill.Customer.Phone != "" {
		pdf.Cell(190, 6, fmt.Sprintf("Tel: %s", bill.Customer.Phone))
		pdf.Ln(6)
	}
	if bill.Customer.Address != "" {
		pdf.Cell(190, 6, tr(bill.Customer.Address))
		pdf.Ln(6)
	}
	pdf.Cell(190, 6, fmt.Sprintf("Envases en poder del cliente: %d", bill.Customer.ContainersHeld))
	pdf.Ln(12)

	// Tabla de pedidos pendientes
	pdf.SetFillColor(236, 240, 241)
	pdf.SetFont("Arial", "B", 10)

	colWidths := []float64{40, 40, 30, 40, 40}
	colHeaders := []string{"Fecha", "Producto", "Unidades", "Precio Unit.", "Total"}
	for i, header := range colHeaders {
		pdf.CellFormat(colWidths[i], 10, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 9)
	rowHeight := 8.0
	row := 0
	for _, order := range orders {
		if !ledger.IsDue(order, bill.Customer.ID) {
			continue
		}
		if row%2 == 0 {
			pdf.SetFillColor(248, 249, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		row++

		pdf.CellFormat(colWidths[0], rowHeight, order.DeliveredAt.Format("02/01/2006"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[1], rowHeight, productLabel(order.ProductType), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colWidths[2], rowHeight, fmt.Sprintf("%d", order.Units), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[3], rowHeight, "$"+order.Price.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[4], rowHeight, "$"+order.Amount().StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.Ln(rowHeight)
	}

	if row == 0 {
		pdf.CellFormat(190, rowHeight, "Sin pedidos pendientes", "1", 0, "C", false, 0, "")
		pdf.Ln(rowHeight)
	}

	// Totales
	totalY := pdf.GetY() + 10
	pdf.SetY(totalY)
	pdf.SetDrawColor(189, 195, 199)
	pdf.Line(120, totalY, 200, totalY)
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetX(120)
	pdf.Cell(50, 8, "Botellas:")
	pdf.Cell(30, 8, fmt.Sprintf("%d", bill.Bill.TotalBottleUnits))
	pdf.Ln(8)

	pdf.SetX(120)
	pdf.Cell(50, 8, "Bidones:")
	pdf.Cell(30, 8, fmt.Sprintf("%d", bill.Bill.TotalJugUnits))
	pdf.Ln(8)

	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(120)
	pdf.CellFormat(50, 12, "TOTAL ADEUDADO:", "", 0, "L", true, 0, "")
	pdf.CellFormat(30, 12, "$"+bill.Bill.TotalDue.StringFixed(2), "", 0, "R", true, 0, "")
	pdf.Ln(12)

	// Footer
	pdf.SetY(270)
	pdf.SetTextColor(149, 165, 166)
	pdf.SetFont("Arial", "", 8)
	pdf.Cell(190, 6, fmt.Sprintf("Generado el: %s", generatedAt.Format("02/01/2006 15:04:05")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating PDF: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"customer_id": bill.Customer.ID,
		"rows":        row,
		"size":        buf.Len(),
	}).Info("Statement PDF generated successfully")

	return buf.Bytes(), nil
}

func productLabel(p models.ProductType) string {
	switch p {
	case models.ProductTypeBottle:
		return "Botella"
	case models.ProductTypeJug:
		return "Bidon"
	default:
		return string(p)
	}
}
