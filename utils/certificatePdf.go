package utils

import (
	"bytes"
	"fmt"

	courseModels "lms/models/course"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// RenderCertificatePDF produces the downloadable certificate artifact: an A4
// landscape page with the recipient, course, certificate number, issue date
// and a QR code pointing at the public verification URL.
func RenderCertificatePDF(cert *courseModels.Certificate) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	// Border
	pdf.SetDrawColor(24, 82, 171)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")

	// Heading
	pdf.SetFont("Times", "B", 34)
	pdf.SetTextColor(24, 82, 171)
	pdf.SetY(36)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(90, 90, 90)
	pdf.Ln(8)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	// Recipient
	pdf.SetFont("Times", "B", 28)
	pdf.SetTextColor(24, 82, 171)
	pdf.Ln(4)
	pdf.CellFormat(0, 12, cert.UserName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(90, 90, 90)
	pdf.Ln(4)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")

	// Course
	pdf.SetFont("Times", "B", 22)
	pdf.SetTextColor(24, 82, 171)
	pdf.Ln(4)
	pdf.CellFormat(0, 10, cert.CourseName, "", 1, "C", false, 0, "")

	// QR code of the verification link
	verifyURL := VerificationURL(cert.CertificateNumber)
	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encoding verification QR: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
	qrSize := 28.0
	pdf.ImageOptions("verify-qr", pageW-qrSize-16, pageH-qrSize-22, qrSize, qrSize, false, opts, 0, "")

	// Footer: number, date, verification link
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(115, 115, 115)
	pdf.SetXY(16, pageH-30)
	pdf.CellFormat(120, 6, "Certificate Number: "+cert.CertificateNumber, "", 2, "L", false, 0, "")
	pdf.CellFormat(120, 6, "Issue Date: "+cert.IssuedAt.Format("January 2, 2006"), "", 2, "L", false, 0, "")
	pdf.CellFormat(120, 6, "Verify at: "+verifyURL, "", 2, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering certificate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
