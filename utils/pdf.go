package utils

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderDiplomaPDF renders a landscape diploma certificate and returns
// the PDF bytes.
func RenderDiplomaPDF(name, email, activityTitle, activityDate string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 32)
	pdf.SetY(50)
	pdf.CellFormat(0, 16, "Diploma de Participacion", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.Ln(10)
	pdf.CellFormat(0, 10, "Se otorga el presente diploma a", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 26)
	pdf.Ln(4)
	pdf.CellFormat(0, 14, name, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.Ln(4)
	pdf.CellFormat(0, 10, "por su participacion en", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Ln(2)
	pdf.CellFormat(0, 12, activityTitle, "", 1, "C", false, 0, "")

	if activityDate != "" {
		pdf.SetFont("Helvetica", "", 13)
		pdf.Ln(6)
		pdf.CellFormat(0, 8, activityDate, "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetY(-30)
	pdf.CellFormat(0, 6, email, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render diploma PDF: %v", err)
	}
	return buf.Bytes(), nil
}

// DiplomaFileName derives the deterministic file name for a
// (user, activity) pair. Regeneration always targets the same path, so
// download URLs stay stable.
func DiplomaFileName(userID, activityID int) string {
	return fmt.Sprintf("diploma-u%d-a%d.pdf", userID, activityID)
}
