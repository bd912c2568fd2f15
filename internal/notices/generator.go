package notices

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/verification"
)

// StopWorkInput is everything the notice renders.
type StopWorkInput struct {
	Project       *compliance.Project
	Subcontractor *compliance.Subcontractor
	Assignment    *compliance.Assignment
	Verdict       *verification.Verdict
	GeneratedAt   time.Time
}

// GenerateStopWork renders a printable stop-work notice for a subcontractor
// scheduled on site without compliant coverage.
func GenerateStopWork(in StopWorkInput) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(192, 0, 0)
	pdf.CellFormat(0, 12, "STOP WORK NOTICE", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Date: "+in.GeneratedAt.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeField(pdf, "Project", in.Project.Name)
	writeField(pdf, "Subcontractor", in.Subcontractor.Name)
	if in.Subcontractor.BrokerName != "" {
		writeField(pdf, "Insurance Broker", in.Subcontractor.BrokerName)
	}
	if in.Assignment.OnSiteDate != nil {
		writeField(pdf, "Scheduled On-Site", in.Assignment.OnSiteDate.Format("January 2, 2006"))
	}
	writeField(pdf, "Compliance Status", string(in.Assignment.Status))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6,
		fmt.Sprintf("%s is not authorized to perform work on %s. The certificate of insurance on file does not satisfy the project's insurance requirements. Site access must be withheld until a compliant certificate is received and verified.",
			in.Subcontractor.Name, in.Project.Name),
		"", "L", false)
	pdf.Ln(4)

	if in.Verdict != nil {
		deficiencies := in.Verdict.Deficiencies()
		if len(deficiencies) > 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 8, "Outstanding Deficiencies", "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			for _, d := range deficiencies {
				pdf.MultiCell(0, 6, fmt.Sprintf("  -  %s: %s", d.Type, d.Description), "", "L", false)
			}
			pdf.Ln(4)
		}
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "This notice was generated automatically from the latest certificate verification on record. It remains in effect until superseded by a compliant verification or an approved exception.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render stop-work notice: %w", err)
	}
	return &buf, nil
}

func writeField(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(45, 7, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}
