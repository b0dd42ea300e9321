package printing

import (
	"fmt"
	"math"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Page geometry in points, y measured from the top edge.
const (
	PageWidth  = 595.28
	PageHeight = 841.89

	marginLeft = 50.0
	rightEdge  = PageWidth - 50

	logoX = 50.0
	logoY = 40.0
	logoW = 80.0
	logoH = 40.0

	companyXWithLogo = 140.0
	companyNameY     = 45.0
	companyAddressY  = 60.0
	companyLineStep  = 12.0
	legalY           = 45.0
	legalStep        = 10.0

	titleY          = 130.0
	clientY         = 180.0
	clientFirstLine = 200.0
	clientStep      = 15.0
	stampStep       = 15.0

	firstTableY        = 280.0
	continuationTableY = 130.0
	clientToTableGap   = 25.0
	headerToRowGap     = 20.0

	colDescription   = 60.0
	colQuantity      = 300.0
	colUnitPrice     = 350.0
	colTotal         = 450.0
	descriptionWidth = 230.0
	lineHeight       = 12.0
	rowPadding       = 5.0
	minRowHeight     = 25.0
	baselineDrop     = 9.0 // baseline below the top of a 12pt line

	tableBottomReserve = 150.0
	footerReserve      = 70.0
	closingTopNewPage  = 110.0
	totalsLabelX       = 440.0
	signatureNameX     = 300.0
	signatureSpace     = 40.0

	footerFirstY  = PageHeight - 50
	footerSecondY = PageHeight - 40
)

// ColumnHeaders are printed above every table region
var ColumnHeaders = [4]string{"Description", "Qté", "P.U.", "Total HT"}

const (
	// TitleText is the document title on the first page
	TitleText = "DEVIS"
	// ClosingMarker is the first label of the closing block
	ClosingMarker = "Total HT:"
)

var fixedConditions = [4]string{
	"• Devis valable 30 jours à compter de la date d'émission",
	"• Intérêt de retard égal à 3 fois le taux d'intérêt légal",
	"• Prix exprimés en euros TTC",
	"• Travaux conformes aux règles de l'art et normes en vigueur",
}

// Layout positions a quote on A4 pages. It is safe for concurrent use when
// its TextMeasurer is.
type Layout struct {
	measure TextMeasurer
	company CompanyProfile
	bank    BankDetails
	logo    *Logo
	logger  *zap.Logger
}

// NewLayout creates a layout. logo may be nil for a text-only header.
func NewLayout(measure TextMeasurer, company CompanyProfile, bank BankDetails, logo *Logo, logger *zap.Logger) *Layout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layout{
		measure: measure,
		company: company,
		bank:    bank,
		logo:    logo,
		logger:  logger,
	}
}

// CheckFit reports, as an invalid record, content that no page can hold:
// a client block running into the table reserve of the first page, or a
// line whose wrapped description is taller than an empty continuation page.
func (l *Layout) CheckFit(q *quote.Quote) error {
	limit := PageHeight - tableBottomReserve
	if bottom := clientBlockBottom(q.Client); bottom > limit {
		return quote.ErrInvalidRecord.WithMessage(fmt.Sprintf(
			"client block has %d lines, at most %d fit on the first page",
			clientLineCount(q.Client), maxClientLines()))
	}
	room := limit - (continuationTableY + headerToRowGap)
	for i, item := range q.Lines {
		if _, height := l.wrapRow(item.Description); height > room {
			return quote.ErrInvalidRecord.WithMessage(fmt.Sprintf(
				"lines[%d].description needs %.0fpt, a page holds %.0fpt", i, height, room))
		}
	}
	return nil
}

// Compose runs one layout pass over q. Rows are kept whole, and the
// closing block (totals, conditions, bank details, signature) is placed
// once, right after the last row, on a single page.
func (l *Layout) Compose(q *quote.Quote, number quote.Number, fallback bool) (*Document, error) {
	if err := l.CheckFit(q); err != nil {
		return nil, err
	}
	doc := &Document{
		Width:        PageWidth,
		Height:       PageHeight,
		TableLimit:   PageHeight - tableBottomReserve,
		ContentLimit: PageHeight - footerReserve,
		Number:       number,
		Fallback:     fallback,
	}
	log := l.logger.With(zap.String("number", number.String()))

	page := l.newPage(doc)
	clientBottom := l.firstPage(page, q, number, log)

	rows := make([][]string, len(q.Lines))
	heights := make([]float64, len(q.Lines))
	for i, item := range q.Lines {
		rows[i], heights[i] = l.wrapRow(item.Description)
	}

	// a column header with no row under it moves to the next page
	tableY := math.Max(firstTableY, clientBottom+clientToTableGap)
	first := minRowHeight
	if len(heights) > 0 {
		first = heights[0]
	}
	if tableY+headerToRowGap+first > doc.TableLimit {
		page = l.newPage(doc)
		tableY = continuationTableY
	}
	l.columnHeader(page, tableY)
	cursor := tableY + headerToRowGap

	subtotal := valueobject.Zero()
	for i, item := range q.Lines {
		if cursor+heights[i] > doc.TableLimit {
			page = l.newPage(doc)
			l.columnHeader(page, continuationTableY)
			cursor = continuationTableY + headerToRowGap
		}
		l.row(page, i, item, rows[i], cursor, heights[i])
		cursor += heights[i]
		subtotal = subtotal.Add(item.LineTotal)
	}

	doc.Totals = quote.TotalsFor(subtotal)
	block, height := l.closingBlock(q.Payment, doc.Totals, log)
	if cursor+height > doc.ContentLimit {
		page = l.newPage(doc)
		cursor = closingTopNewPage
	}
	for _, el := range block {
		el.Y += cursor
		page.Texts = append(page.Texts, el)
	}
	page.Closing = &BlockPlacement{Top: cursor, Height: height}

	l.footers(doc)
	return doc, nil
}

func (l *Layout) wrapRow(description string) ([]string, float64) {
	lines := WrapText(description, descriptionWidth, func(s string) float64 {
		return l.measure.Width(fontRegular, s)
	})
	return lines, math.Max(minRowHeight, float64(len(lines))*lineHeight+rowPadding)
}

// clientLineCount counts the client lines under the name: address lines,
// then phone and email when present.
func clientLineCount(c quote.Client) int {
	n := len(c.AddressLines())
	if c.Phone != "" {
		n++
	}
	if c.Email != "" {
		n++
	}
	return n
}

// clientBlockBottom is the baseline of the last client line on page 1
func clientBlockBottom(c quote.Client) float64 {
	return clientFirstLine + float64(clientLineCount(c))*clientStep
}

func maxClientLines() int {
	return int((PageHeight - tableBottomReserve - clientFirstLine) / clientStep)
}

// newPage appends a page carrying the company header
func (l *Layout) newPage(doc *Document) *Page {
	page := &Page{Number: len(doc.Pages) + 1}
	doc.Pages = append(doc.Pages, page)

	x := marginLeft
	if l.logo != nil {
		page.Images = append(page.Images, ImageElement{X: logoX, Y: logoY, W: logoW, H: logoH, Logo: l.logo})
		x = companyXWithLogo
	}
	page.text(x, companyNameY, l.company.Name, fontName, AlignLeft)
	y := companyAddressY
	for _, line := range l.company.AddressLines() {
		page.text(x, y, line, fontRegular, AlignLeft)
		y += companyLineStep
	}
	if contact := l.company.contactLine(); contact != "" {
		page.text(x, y, contact, fontRegular, AlignLeft)
	}

	y = legalY
	for _, line := range l.company.legalLines() {
		page.text(rightEdge, y, line, fontLegal, AlignRight)
		y += legalStep
	}
	return page
}

// firstPage draws the title, client block and date/number stamp, and
// returns the baseline of the last client line.
func (l *Layout) firstPage(page *Page, q *quote.Quote, number quote.Number, log *zap.Logger) float64 {
	page.Texts = append(page.Texts, TextElement{
		X: PageWidth / 2, Y: titleY, Text: TitleText, Font: fontTitle, Align: AlignCenter, Color: colorAccent,
	})

	page.text(marginLeft, clientY, "CLIENT:", fontLabel, AlignLeft)
	y := clientFirstLine
	page.text(marginLeft, y, q.Client.FullName(), fontBody, AlignLeft)
	for _, line := range q.Client.AddressLines() {
		y += clientStep
		page.text(marginLeft, y, line, fontBody, AlignLeft)
	}
	if q.Client.Phone != "" {
		y += clientStep
		page.text(marginLeft, y, "Tél: "+q.Client.Phone, fontBody, AlignLeft)
	} else {
		log.Info("Client phone missing, line skipped")
	}
	if q.Client.Email != "" {
		y += clientStep
		page.text(marginLeft, y, "Email: "+q.Client.Email, fontBody, AlignLeft)
	} else {
		log.Info("Client email missing, line skipped")
	}

	page.text(rightEdge, clientY, "Date: "+formatDate(q.IssuedAt()), fontBody, AlignRight)
	page.text(rightEdge, clientY+stampStep, "Devis N°: "+number.String(), fontBody, AlignRight)
	return y
}

func (l *Layout) columnHeader(page *Page, y float64) {
	page.ColumnHeaderY = y
	xs := [4]float64{colDescription, colQuantity, colUnitPrice, colTotal}
	for i, label := range ColumnHeaders {
		page.text(xs[i], y, label, fontColumn, AlignLeft)
	}
}

// row draws a line item with its description lines and cells vertically
// centred in [top, top+height].
func (l *Layout) row(page *Page, index int, item quote.LineItem, lines []string, top, height float64) {
	page.Rows = append(page.Rows, RowPlacement{Index: index, Top: top, Height: height, Lines: lines})

	textTop := top + (height-float64(len(lines))*lineHeight)/2
	for i, line := range lines {
		page.text(colDescription, textTop+float64(i)*lineHeight+baselineDrop, line, fontRegular, AlignLeft)
	}

	middle := top + height/2 + (baselineDrop - lineHeight/2)
	page.text(colQuantity, middle, item.FormatQuantity(), fontRegular, AlignLeft)
	page.text(colUnitPrice, middle, item.UnitPrice.Format(), fontRegular, AlignLeft)
	page.text(rightEdge, middle, item.LineTotal.Format(), fontRegular, AlignRight)
}

// closingBlock returns the closing elements with Y relative to the block
// top, and the block height.
func (l *Layout) closingBlock(p quote.Payment, totals quote.Totals, log *zap.Logger) ([]TextElement, float64) {
	var els []TextElement
	add := func(x, y float64, s string, f Font, a Align) {
		els = append(els, TextElement{X: x, Y: y, Text: s, Font: f, Align: a})
	}

	add(totalsLabelX, 30, ClosingMarker, fontTotal, AlignRight)
	add(rightEdge, 30, totals.Subtotal.Format(), fontTotal, AlignRight)
	add(totalsLabelX, 48, fmt.Sprintf("TVA (%d%%):", quote.TaxRatePercent), fontTotal, AlignRight)
	add(rightEdge, 48, totals.Tax.Format(), fontTotal, AlignRight)
	add(totalsLabelX, 68, "Total TTC:", fontGrand, AlignRight)
	add(rightEdge, 68, totals.Total.Format(), fontGrand, AlignRight)

	y := 108.0
	add(marginLeft, y, "CONDITIONS GÉNÉRALES:", fontColumn, AlignLeft)
	y += 20
	for _, line := range l.conditions(p, log) {
		add(marginLeft, y, line, fontRegular, AlignLeft)
		y += clientStep
	}

	if p.RequiresBankDetails() {
		if bank := l.bank.lines(); len(bank) > 0 {
			y += 10
			add(marginLeft, y, "COORDONNÉES BANCAIRES:", fontColumn, AlignLeft)
			for _, line := range bank {
				y += clientStep
				add(marginLeft, y, line, fontRegular, AlignLeft)
			}
			y += clientStep
		} else {
			log.Warn("Bank details missing, bank block skipped")
		}
	}

	y += clientStep
	add(marginLeft, y, "Bon pour accord:", fontBody, AlignLeft)
	add(signatureNameX, y, l.company.Name, fontBody, AlignLeft)
	y += 20
	add(marginLeft, y, "Date et signature client:", fontBody, AlignLeft)

	return els, y + signatureSpace
}

// conditions returns the general conditions with the payment labels
// substituted in lines 2 and 3
func (l *Layout) conditions(p quote.Payment, log *zap.Logger) []string {
	deadline, ok := p.Deadline.Label()
	if !ok {
		log.Warn("Unknown payment deadline, using default label",
			zap.String("deadline", p.Deadline.String()), zap.String("label", deadline))
	}
	mode, ok := p.Mode.Label()
	if !ok {
		log.Warn("Unknown payment mode, using default label",
			zap.String("mode", p.Mode.String()), zap.String("label", mode))
	}
	return []string{
		fixedConditions[0],
		"• Nos prestations sont payables " + deadline,
		"• Modalités de paiement : " + mode,
		fixedConditions[1],
		fixedConditions[2],
		fixedConditions[3],
	}
}

// footers adds the legal footer and page marker once the page count is known
func (l *Layout) footers(doc *Document) {
	lines := l.company.footerLines()
	n := len(doc.Pages)
	for _, page := range doc.Pages {
		page.text(PageWidth/2, footerFirstY, lines[0], fontFooter, AlignCenter)
		page.text(PageWidth/2, footerSecondY, lines[1], fontFooter, AlignCenter)
		page.text(rightEdge, footerSecondY, fmt.Sprintf("Page %d/%d", page.Number, n), fontFooter, AlignRight)
	}
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
