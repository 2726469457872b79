package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// pdfText converts UTF-8 text to PDF-safe encoding
// The £ sign in UTF-8 is 0xC2 0xA3, but PDF standard fonts expect Latin-1 (just 0xA3)
func pdfText(s string) string {
	return strings.ReplaceAll(s, "£", "\xa3")
}

// FormatMoneyPDF formats money for PDF output (handles £ encoding)
func FormatMoneyPDF(amount float64) string {
	return pdfText(FormatMoney(amount))
}

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// PDFCalculationReport renders one calculation as a single-page PDF
type PDFCalculationReport struct {
	pdf         *fpdf.Fpdf
	taxYear     TaxYearConstants
	requested   Inputs
	calc        Calculation
	generatedAt time.Time
}

// GenerateCalculationPDF creates the PDF report and returns its bytes
func GenerateCalculationPDF(ty TaxYearConstants, requested Inputs, calc Calculation, generatedAt time.Time) ([]byte, error) {
	report := &PDFCalculationReport{
		pdf:         fpdf.New("P", "mm", "A4", ""),
		taxYear:     ty,
		requested:   requested,
		calc:        calc,
		generatedAt: generatedAt,
	}

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)
	report.pdf.SetTitle("Business Owner Tax Calculation "+ty.Label, false)

	report.pdf.AddPage()
	report.addTitle()
	report.addInputs()
	report.addRebalanceNotice()
	for _, section := range ResultSections(calc.Results) {
		report.addSection(section)
	}
	report.addDisclaimer()

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GeneratePDFReportFile writes the PDF report to filename
func GeneratePDFReportFile(ty TaxYearConstants, requested Inputs, calc Calculation, filename string) error {
	content, err := GenerateCalculationPDF(ty, requested, calc, time.Now())
	if err != nil {
		return fmt.Errorf("generating PDF: %w", err)
	}
	return os.WriteFile(filename, content, 0644)
}

func (r *PDFCalculationReport) addTitle() {
	r.pdf.SetFont("Arial", "B", 22)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, "Business Owner Tax Calculation", "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "", 12)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(contentWidth, 8, "Tax year "+r.taxYear.Label, "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Generated: %s", r.generatedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	r.pdf.Ln(6)
}

func (r *PDFCalculationReport) addInputs() {
	r.drawSectionHeader("Inputs")
	widths := []float64{contentWidth * 0.6, contentWidth * 0.4}
	r.drawTableHeader([]string{"Item", "Amount"}, widths)
	for _, line := range InputLines(r.calc.Inputs) {
		value := FormatMoneyPDF(line.Amount)
		if line.Label == "Working Days" {
			value = fmt.Sprintf("%.0f", line.Amount)
		}
		r.drawTableRow([]string{line.Label, value}, widths, line.Label == "Gross Profit")
	}
	r.pdf.Ln(4)
}

func (r *PDFCalculationReport) addRebalanceNotice() {
	notes := RebalanceNotes(r.requested, r.calc.Inputs)
	if !r.calc.Rebalanced || len(notes) == 0 {
		return
	}
	r.pdf.SetFillColor(255, 248, 225)
	r.pdf.SetTextColor(150, 90, 0)
	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(contentWidth, 7, "Inputs were rebalanced to fit within available profit", "1", 1, "L", true, 0, "")
	r.pdf.SetFont("Arial", "", 9)
	for _, note := range notes {
		r.pdf.CellFormat(contentWidth, 6, pdfText("  - "+note), "LR", 1, "L", true, 0, "")
	}
	r.pdf.CellFormat(contentWidth, 1, "", "LRB", 1, "L", true, 0, "")
	r.pdf.Ln(4)
}

func (r *PDFCalculationReport) addSection(section ReportSection) {
	r.drawSectionHeader(section.Title)
	widths := []float64{contentWidth * 0.6, contentWidth * 0.4}
	r.drawTableHeader([]string{"Item", "Amount"}, widths)
	last := len(section.Lines) - 1
	for i, line := range section.Lines {
		r.drawTableRow([]string{line.Label, FormatMoneyPDF(line.Amount)}, widths, i == last)
	}
	r.pdf.Ln(4)
}

func (r *PDFCalculationReport) addDisclaimer() {
	r.pdf.Ln(6)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4,
		"This document is for informational purposes only and does not constitute financial advice. "+
			"Employer NI is taken as entered, not derived from salary. "+
			"Tax rules and allowances are subject to change.", "", "C", false)
}

func (r *PDFCalculationReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 9, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(3)
}

func (r *PDFCalculationReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}

func (r *PDFCalculationReport) drawTableRow(cells []string, widths []float64, isBold bool) {
	r.pdf.SetFillColor(250, 250, 250)
	r.pdf.SetTextColor(50, 50, 50)

	if isBold {
		r.pdf.SetFont("Arial", "B", 9)
		r.pdf.SetFillColor(240, 240, 240)
	} else {
		r.pdf.SetFont("Arial", "", 9)
	}

	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 5, cell, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}
