package printing

import (
	"strings"
	"sync"

	"github.com/phpdave11/gofpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Font is a core PDF font at a given size
type Font struct {
	Family string
	Style  string // "", "B", "I" or "BI"
	Size   float64
}

var (
	fontRegular = Font{Family: "Helvetica", Size: 9}
	fontBody    = Font{Family: "Helvetica", Size: 10}
	fontLegal   = Font{Family: "Helvetica", Size: 8}
	fontFooter  = Font{Family: "Helvetica", Size: 7}
	fontName    = Font{Family: "Helvetica", Style: "B", Size: 14}
	fontTitle   = Font{Family: "Helvetica", Style: "B", Size: 20}
	fontLabel   = Font{Family: "Helvetica", Style: "B", Size: 12}
	fontColumn  = Font{Family: "Helvetica", Style: "B", Size: 10}
	fontTotal   = Font{Family: "Helvetica", Style: "B", Size: 11}
	fontGrand   = Font{Family: "Helvetica", Style: "B", Size: 14}
)

// TextMeasurer returns the rendered width of text in points
type TextMeasurer interface {
	Width(f Font, text string) float64
}

// FontMetrics measures text with the AFM widths of the core PDF fonts,
// the same tables the painter draws with.
type FontMetrics struct {
	mu  sync.Mutex
	pdf *gofpdf.Fpdf
}

// NewFontMetrics creates a measurer for the core fonts
func NewFontMetrics() *FontMetrics {
	return &FontMetrics{pdf: gofpdf.New("P", "pt", "A4", "")}
}

// Width implements TextMeasurer
func (m *FontMetrics) Width(f Font, text string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(f.Family, f.Style, f.Size)
	return m.pdf.GetStringWidth(encodeText(text))
}

// encodeText prepares text for a core font: NFC composition, control
// characters shown as spaces, then Windows-1252 bytes. Runes outside the
// code page print as '?'.
func encodeText(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteByte(' ')
			continue
		}
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}
