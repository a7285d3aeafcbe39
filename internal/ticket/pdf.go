package ticket

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders a single-page downloadable ticket with the QR code.
func PDF(p Payload) ([]byte, error) {
	qrBytes, err := QRPNG(p, 512)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pdf.SetAutoPageBreak(false, 0)

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "RUN CLUB eTICKET")
	pdf.Ln(18)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 62, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, p.Event)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Date: " + p.Date,
		"Time: " + p.Time,
		"Location: " + p.Location,
		"Ticket: " + p.TicketType,
		"Status: " + p.Status,
	} {
		pdf.SetX(20)
		pdf.Cell(0, 8, line)
		pdf.Ln(7)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrBytes))
	pdf.ImageOptions("qr", 140, yStart, 55, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 70)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this QR code at the start line for entry.")
	pdf.Ln(12)

	drawSectionTitle(pdf, "RUNNER")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Name: %s", p.User))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Phone: %s", p.PhoneNumber))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", p.UserEmail))
	pdf.Ln(10)

	drawSectionTitle(pdf, "BOOKING")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Booking ID: %s", p.ID))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Booked on: %s", p.BookingDate))
	pdf.Ln(6)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s - ticket v%s", p.GeneratedAt, p.Version), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
}
