package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/sor"
)

// PDFOptions controls the trace report rendering.
type PDFOptions struct {
	Lang Language
	// SourceName and SourceHash identify the decoded file. The hash is also
	// printed as a QR code.
	SourceName string
	SourceHash string
	// FontPath points to a UTF-8 TrueType font. Without it the core
	// Helvetica font is used and labels fall back to English for languages
	// it cannot render.
	FontPath  string
	Generated time.Time
}

const (
	pageMargin   = 15.0
	contentWidth = 210 - 2*pageMargin
	qrSize       = 32.0
	plotHeight   = 40.0
)

var tableWidths = map[string][]float64{
	"event.title":    {10, 22, 20, 16, 20, 18, 16, 36, 22},
	"landmark.title": {10, 12, 18, 12, 26, 16, 18, 18, 12, 12, 26},
}

type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	tr     Translator
	family string
	enc    func(string) string
}

// SaveTracePDF renders the trace report to the file at out.
func SaveTracePDF(trace sor.Trace, out string, opts PDFOptions) error {
	pw, err := renderTracePDF(trace, opts)
	if err != nil {
		return err
	}
	return pw.pdf.OutputFileAndClose(out)
}

// WriteTracePDF renders the trace report to w.
func WriteTracePDF(w io.Writer, trace sor.Trace, opts PDFOptions) error {
	pw, err := renderTracePDF(trace, opts)
	if err != nil {
		return err
	}
	return pw.pdf.Output(w)
}

func renderTracePDF(trace sor.Trace, opts PDFOptions) (*pdfWriter, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pw := &pdfWriter{pdf: pdf, family: "Helvetica"}
	lang := opts.Lang
	if opts.FontPath != "" {
		pdf.AddUTF8Font("report", "", opts.FontPath)
		pdf.AddUTF8Font("report", "B", opts.FontPath)
		pw.family = "report"
		pw.enc = func(s string) string { return s }
	} else {
		if lang != LangEnglish && lang != "" {
			common.Logf("pdf: no UTF-8 font configured, rendering %s report with English labels", lang)
			lang = LangEnglish
		}
		pw.enc = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pw.tr = NewTranslator(lang)

	title := pw.tr.T("report.title")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("sorctl", false)
	pdf.SetCreator("sorctl", false)
	pdf.SetMargins(pageMargin, 20, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pw.heading(title, 18)
	pw.summary(trace, opts)
	for _, s := range Sections(trace) {
		pw.section(s)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pw, nil
}

func (pw *pdfWriter) heading(text string, size float64) {
	pw.pdf.SetFont(pw.family, "B", size)
	pw.pdf.Cell(0, size*0.55, pw.enc(text))
	pw.pdf.Ln(size*0.55 + 2)
}

func (pw *pdfWriter) summary(trace sor.Trace, opts PDFOptions) {
	pdf := pw.pdf
	top := pdf.GetY()
	pw.heading(pw.tr.T("report.summary"), 12)

	var failed, unknown int
	for _, b := range trace.Blocks {
		if b.Failed() {
			failed++
		}
		if b.Kind() == sor.KindUnknown {
			unknown++
		}
	}
	generated := opts.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	items := []struct{ key, value string }{
		{"report.file", emptyFallback(opts.SourceName, "-")},
		{"report.sha256", emptyFallback(opts.SourceHash, "-")},
		{"report.generated", generated.UTC().Format(time.RFC3339)},
		{"report.blocks", strconv.Itoa(len(trace.Blocks))},
		{"report.failedBlocks", strconv.Itoa(failed)},
		{"report.unknownBlocks", strconv.Itoa(unknown)},
		{"report.contentEnd", strconv.FormatInt(trace.ContentEnd, 10)},
	}
	pdf.SetFont(pw.family, "", 9)
	for _, item := range items {
		pdf.CellFormat(45, 5, pw.enc(pw.tr.T(item.key)), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth-45-qrSize, 5, pw.enc(item.value), "", 1, "L", false, 0, "")
	}

	if opts.SourceHash != "" {
		png, err := HashToQR(opts.SourceHash, 256)
		if err != nil {
			common.Logf("pdf: qr code: %v", err)
		} else {
			imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("source-hash", imgOpts, bytes.NewReader(png))
			pdf.ImageOptions("source-hash", pageMargin+contentWidth-qrSize, top, qrSize, qrSize, false, imgOpts, 0, "")
		}
	}
	if y := top + qrSize + 2; pdf.GetY() < y {
		pdf.SetY(y)
	}
	pdf.Ln(4)
}

func (pw *pdfWriter) section(s Section) {
	pdf := pw.pdf
	b := s.Block
	title := pw.tr.T("kind." + string(b.Kind()))
	if b.Kind() == sor.KindUnknown {
		title = b.ID
	}
	pw.heading(pw.tr.Format("report.blockHeader", title, b.Version, b.Length), 12)

	pdf.SetFont(pw.family, "", 9)
	for el := s.Fields.Front(); el != nil; el = el.Next() {
		pdf.CellFormat(60, 5, pw.enc(pw.tr.T(el.Key)), "", 0, "L", false, 0, "")
		pdf.MultiCell(contentWidth-60, 5, pw.enc(emptyFallback(el.Value, "-")), "", "L", false)
	}
	for _, t := range s.Tables {
		pw.table(t)
	}
	if pts, ok := b.Fields.(*sor.DataPts); ok && len(pts.Samples) > 1 {
		pw.samplePlot(pts.Samples)
	}
	if b.Kind() == sor.KindUnknown {
		pdf.MultiCell(0, 5, pw.enc(pw.tr.Format("report.unknown", len(b.Content))), "", "L", false)
	}
	if b.Err != nil {
		pdf.SetTextColor(180, 0, 0)
		pdf.MultiCell(0, 5, pw.enc(pw.tr.T("report.error")+": "+b.Err.Error()), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)
}

func (pw *pdfWriter) table(t Table) {
	pdf := pw.pdf
	pdf.Ln(2)
	pdf.SetFont(pw.family, "B", 10)
	pdf.Cell(0, 6, pw.enc(pw.tr.T(t.Title)))
	pdf.Ln(7)
	if len(t.Rows) == 0 {
		pdf.SetFont(pw.family, "", 9)
		pdf.MultiCell(0, 5, pw.enc(pw.tr.T("report.none")), "", "L", false)
		return
	}

	widths := tableWidths[t.Title]
	if len(widths) != len(t.Columns) {
		widths = make([]float64, len(t.Columns))
		for i := range widths {
			widths[i] = contentWidth / float64(len(t.Columns))
		}
	}
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = pw.tr.T(c)
	}
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont(pw.family, "B", 7)
	pw.row(widths, headers, 4, true)
	pdf.SetFont(pw.family, "", 7)
	for _, row := range t.Rows {
		pw.row(widths, row, 4, false)
	}
}

func (pw *pdfWriter) row(widths []float64, values []string, lineHeight float64, fill bool) {
	pdf := pw.pdf
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	cols := make([][]string, len(values))
	for i, val := range values {
		text := pw.enc(emptyFallback(val, "-"))
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		cols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if yStart+rowHeight > pageHeight-bottom {
		pdf.AddPage()
		yStart = pdf.GetY()
	}
	x := xStart
	for i, lines := range cols {
		pdf.SetXY(x, yStart)
		if fill {
			pdf.Rect(x, yStart, widths[i], rowHeight, "F")
		}
		pdf.Rect(x, yStart, widths[i], rowHeight, "D")
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

// samplePlot draws the decoded scale-factor samples as a polyline.
func (pw *pdfWriter) samplePlot(samples []uint16) {
	pdf := pw.pdf
	pdf.Ln(2)
	pdf.SetFont(pw.family, "B", 10)
	pdf.Cell(0, 6, pw.enc(pw.tr.T("report.samplePlot")))
	pdf.Ln(7)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+plotHeight > pageHeight-bottom {
		pdf.AddPage()
	}
	x0, y0 := pageMargin, pdf.GetY()
	pdf.SetDrawColor(160, 160, 160)
	pdf.Rect(x0, y0, contentWidth, plotHeight, "D")

	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := float64(hi - lo)
	if span == 0 {
		span = 1
	}
	step := contentWidth / float64(len(samples)-1)
	point := func(i int) (float64, float64) {
		return x0 + float64(i)*step, y0 + plotHeight - float64(samples[i]-lo)/span*plotHeight
	}
	pdf.SetDrawColor(0, 70, 160)
	pdf.SetLineWidth(0.3)
	px, py := point(0)
	for i := 1; i < len(samples); i++ {
		x, y := point(i)
		pdf.Line(px, py, x, y)
		px, py = x, y
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetY(y0 + plotHeight + 2)
	pdf.SetFont(pw.family, "", 7)
	pdf.Cell(0, 4, fmt.Sprintf("min %d  max %d  n %d", lo, hi, len(samples)))
	pdf.Ln(5)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
