package printing

import (
	"bytes"
	"time"

	"github.com/phpdave11/gofpdf"
)

// PainterConfig sets the PDF metadata
type PainterConfig struct {
	Creator string
	Author  string
}

// Painter draws a laid-out Document with gofpdf
type Painter struct {
	config PainterConfig
}

// NewPainter creates a painter
func NewPainter(config PainterConfig) *Painter {
	if config.Creator == "" {
		config.Creator = "btp-devis"
	}
	return &Painter{config: config}
}

// Paint encodes doc as PDF bytes. The output depends only on doc and
// createdAt, and is built in memory, so on error nothing has been written
// anywhere.
func (p *Painter) Paint(doc *Document, createdAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator(p.config.Creator, true)
	if p.config.Author != "" {
		pdf.SetAuthor(p.config.Author, true)
	}
	pdf.SetTitle("Devis "+doc.Number.String(), true)
	// same document, same bytes: pinned dates and a sorted font/image catalog
	stamp := createdAt.UTC()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)

	registered := map[string]bool{}
	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, img := range page.Images {
			if !registered[img.Logo.Name] {
				img.Logo.register(pdf)
				registered[img.Logo.Name] = true
			}
			pdf.ImageOptions(img.Logo.Name, img.X, img.Y, img.W, img.H, false,
				gofpdf.ImageOptions{ImageType: img.Logo.Type}, 0, "")
		}
		for _, t := range page.Texts {
			drawText(pdf, t)
		}
		if pdf.Err() {
			return nil, NewRenderError(ErrCodeRenderFailed, "failed to draw page", pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to encode PDF", err)
	}
	return buf.Bytes(), nil
}

func drawText(pdf *gofpdf.Fpdf, t TextElement) {
	pdf.SetFont(t.Font.Family, t.Font.Style, t.Font.Size)
	pdf.SetTextColor(t.Color.R, t.Color.G, t.Color.B)
	s := encodeText(t.Text)
	x := t.X
	switch t.Align {
	case AlignRight:
		x -= pdf.GetStringWidth(s)
	case AlignCenter:
		x -= pdf.GetStringWidth(s) / 2
	}
	pdf.Text(x, t.Y, s)
}
