package services

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	documentFont   = "Go"
	pageMargin     = 20.0 // mm
	maxTitleLength = 100

	titleFontSize   = 16.0
	titleLineHeight = 8.0
	bodyFontSize    = 11.0
	bodyLineHeight  = 5.0
	paragraphGap    = 3.0
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// DocumentRenderer lays out provider text as an A4 PDF
type DocumentRenderer struct {
	compress bool
}

// NewDocumentRenderer creates a renderer producing compressed PDFs
func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{compress: true}
}

// Render returns the PDF bytes for content. Paragraphs are separated by blank
// lines; a short first paragraph is set as the title.
func (d *DocumentRenderer) Render(content string) ([]byte, error) {
	pdf := d.layout(content)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Kind: "document", Err: err}
	}
	return buf.Bytes(), nil
}

func (d *DocumentRenderer) layout(content string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(d.compress)
	pdf.SetCreator("atomrouter", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddUTF8FontFromBytes(documentFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(documentFont, "B", gobold.TTF)
	pdf.AddPage()

	// Only the first chunk can be the title, so a leading blank chunk means no title
	for i, chunk := range splitParagraphs(content) {
		text := pdfText(chunk)
		if text == "" {
			continue
		}
		if i == 0 && utf8.RuneCountInString(chunk) < maxTitleLength {
			pdf.SetFont(documentFont, "B", titleFontSize)
			pdf.MultiCell(0, titleLineHeight, text, "", "L", false)
		} else {
			pdf.SetFont(documentFont, "", bodyFontSize)
			pdf.MultiCell(0, bodyLineHeight, text, "", "J", false)
		}
		pdf.Ln(paragraphGap)
	}

	return pdf
}

// splitParagraphs returns the raw blank-line separated chunks, empty ones included
func splitParagraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return paragraphBreak.Split(content, -1)
}

// pdfText trims a chunk and drops runes outside the Basic Multilingual Plane,
// which fpdf cannot encode for embedded UTF-8 fonts
func pdfText(chunk string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return -1
		}
		return r
	}, chunk))
}
