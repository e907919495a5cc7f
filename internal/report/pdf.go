package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"kata_review/internal/domain"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Ply", 12},
	{"Move", 22},
	{"B win %", 22},
	{"B lead", 22},
	{"Visits", 20},
	{"Best", 22},
	{"Loss %", 20},
}

// WritePDF renders a one-row-per-ply table, mistakes highlighted, followed
// by the comments of flagged moves.
func WritePDF(w io.Writer, run domain.Analysis) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Analysis "+run.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	title := "Game analysis"
	if run.Source != "" {
		title += ": " + run.Source
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Rules %s, komi %.1f, board %s, %d visits",
		run.Params.Rules, run.Params.Komi, run.Params.BoardSize.String(), run.Params.MaxVisits))
	pdf.Ln(10)

	pdf.SetFont("Courier", "B", 10)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Courier", "", 10)
	pdf.SetFillColor(255, 220, 220)
	table := rows(run)
	for _, r := range table {
		cells := []string{
			fmt.Sprintf("%d", r.Ply),
			r.Move,
			fmt.Sprintf("%.1f", 100*r.BlackWinrate),
			fmt.Sprintf("%+.1f", r.BlackLead),
			fmt.Sprintf("%d", r.Visits),
			r.Best,
			fmt.Sprintf("%.1f", 100*r.Loss),
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 5, cells[i], "1", 0, "R", r.mistake(), 0, "")
		}
		pdf.Ln(-1)
	}

	var flagged []row
	for _, r := range table {
		if r.mistake() && r.Comment != "" {
			flagged = append(flagged, r)
		}
	}
	if len(flagged) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Mistakes")
		pdf.Ln(10)
		for _, r := range flagged {
			pdf.SetFont("Courier", "B", 10)
			pdf.Cell(0, 5, fmt.Sprintf("%d. %s", r.Ply+1, r.Move))
			pdf.Ln(5)
			pdf.SetFont("Courier", "", 10)
			for _, line := range strings.Split(r.Comment, "\n") {
				pdf.MultiCell(0, 4.5, line, "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	return pdf.Output(w)
}
