package printing

import (
	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
)

// Align anchors a text element on its X coordinate
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Color is an RGB fill colour for text
type Color struct{ R, G, B int }

var (
	colorBlack  = Color{}
	colorAccent = Color{R: 0x66, G: 0x7e, B: 0xea}
)

// TextElement is one string drawn on a page. Y is the baseline, measured
// from the top edge.
type TextElement struct {
	X, Y  float64
	Text  string
	Font  Font
	Align Align
	Color Color
}

// ImageElement is an image drawn with its top-left corner at X, Y
type ImageElement struct {
	X, Y, W, H float64
	Logo       *Logo
}

// RowPlacement records where a line item landed
type RowPlacement struct {
	Index  int // position in the quote's lines
	Top    float64
	Height float64
	Lines  []string
}

// Bottom is the lower edge of the row
func (r RowPlacement) Bottom() float64 {
	return r.Top + r.Height
}

// BlockPlacement records where the closing block landed
type BlockPlacement struct {
	Top    float64
	Height float64
}

// Bottom is the lower edge of the block
func (b BlockPlacement) Bottom() float64 {
	return b.Top + b.Height
}

// Page is one laid-out page
type Page struct {
	Number int // 1-based
	// ColumnHeaderY is the baseline of the column header row, 0 when the
	// page carries no table.
	ColumnHeaderY float64
	Rows          []RowPlacement
	Closing       *BlockPlacement
	Texts         []TextElement
	Images        []ImageElement
}

// HasText reports whether the page draws exactly this string
func (p *Page) HasText(s string) bool {
	for _, t := range p.Texts {
		if t.Text == s {
			return true
		}
	}
	return false
}

func (p *Page) text(x, y float64, s string, f Font, a Align) {
	p.Texts = append(p.Texts, TextElement{X: x, Y: y, Text: s, Font: f, Align: a})
}

// Document is the positioned result of a layout pass
type Document struct {
	Width, Height float64
	// TableLimit is the lowest y a line-item row may reach
	TableLimit float64
	// ContentLimit is the lowest y the closing block may reach
	ContentLimit float64

	Number   quote.Number
	Totals   quote.Totals
	Fallback bool // Number was synthesized from the record id
	Pages    []*Page
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// ClosingPage returns the page holding the closing block
func (d *Document) ClosingPage() *Page {
	for _, p := range d.Pages {
		if p.Closing != nil {
			return p
		}
	}
	return nil
}
