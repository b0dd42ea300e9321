package printing

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fixedMeasurer measures 5pt per rune in every font
type fixedMeasurer struct{}

func (fixedMeasurer) Width(_ Font, s string) float64 { return runeWidth(s) }

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(s)
	require.NoError(t, err)
	return m
}

func item(t *testing.T, desc string, qty int64, unit, total string) quote.LineItem {
	t.Helper()
	lt := money(t, total)
	return quote.NewLineItem(desc, decimal.NewFromInt(qty), money(t, unit), &lt)
}

func testClient() quote.Client {
	return quote.Client{
		FirstName: "Jean",
		LastName:  "Dupont",
		Address:   "12 avenue Jean Médecin, 06000 Nice",
		Phone:     "06 12 34 56 78",
		Email:     "jean.dupont@example.fr",
	}
}

func newQuote(t *testing.T, lines []quote.LineItem, payment quote.Payment) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(testClient(), lines, payment)
	require.NoError(t, err)
	q.ID = 7
	q.CreatedAt = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	return q
}

func shortItems(t *testing.T, n int) []quote.LineItem {
	items := make([]quote.LineItem, n)
	for i := range items {
		items[i] = item(t, fmt.Sprintf("Poste %d", i+1), 1, "10.00", "10.00")
	}
	return items
}

func testBank() BankDetails {
	return BankDetails{Name: "Crédit Agricole", IBAN: "FR76 1910 6000 0000 0000 0000 000", BIC: "AGRIFRPP891"}
}

func compose(t *testing.T, q *quote.Quote, bank BankDetails, logger *zap.Logger) *Document {
	t.Helper()
	l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), bank, nil, logger)
	doc, err := l.Compose(q, mustNumber(t, 2025, 7), false)
	require.NoError(t, err)
	return doc
}

func countText(doc *Document, s string) (count int, pages []int) {
	for _, p := range doc.Pages {
		for _, el := range p.Texts {
			if el.Text == s {
				count++
				pages = append(pages, p.Number)
			}
		}
	}
	return count, pages
}

func assertClosingFits(t *testing.T, doc *Document) {
	t.Helper()
	count, _ := countText(doc, ClosingMarker)
	require.Equal(t, 1, count, "closing block is drawn exactly once")

	closing := doc.ClosingPage()
	require.NotNil(t, closing)
	assert.Equal(t, doc.PageCount(), closing.Number, "closing block is on the last page")
	assert.LessOrEqual(t, closing.Closing.Bottom(), doc.ContentLimit)

	for _, el := range closing.Texts {
		if el.Y >= closing.Closing.Top && el.Y <= closing.Closing.Bottom() {
			continue
		}
		// everything outside the block on that page belongs to header, table or footer
		assert.False(t, strings.HasPrefix(el.Text, "• "), "condition line outside the block: %q", el.Text)
	}

	if len(closing.Rows) > 0 {
		last := closing.Rows[len(closing.Rows)-1]
		assert.GreaterOrEqual(t, closing.Closing.Top, last.Bottom(), "block follows the last row")
	}
}

func TestCompose_ReferenceScenarioSinglePage(t *testing.T) {
	q := newQuote(t, []quote.LineItem{
		item(t, "Maçonnerie", 10, "45.00", "450.00"),
		item(t, "Peinture", 20, "25.00", "500.00"),
		item(t, "Carrelage", 15, "35.00", "525.00"),
	}, quote.DefaultPayment())

	doc := compose(t, q, testBank(), nil)

	require.Equal(t, 1, doc.PageCount())
	page := doc.Pages[0]
	assert.Len(t, page.Rows, 3)
	assert.Equal(t, "1475.00", doc.Totals.Subtotal.String())
	assert.Equal(t, "295.00", doc.Totals.Tax.String())
	assert.Equal(t, "1770.00", doc.Totals.Total.String())

	for _, s := range []string{
		TitleText, "CLIENT:", "Jean Dupont", "Tél: 06 12 34 56 78", "Email: jean.dupont@example.fr",
		"Date: 14/03/2025", "Devis N°: DEV-2025-0007",
		"1475.00 €", "295.00 €", "1770.00 €", "TVA (20%):",
		"450.00 €", "45.00 €", "10",
		"• Nos prestations sont payables à 30 jours",
		"• Modalités de paiement : Virement bancaire",
		"COORDONNÉES BANCAIRES:", "IBAN: FR76 1910 6000 0000 0000 0000 000",
		"Page 1/1",
	} {
		assert.True(t, page.HasText(s), "missing %q", s)
	}
	assertClosingFits(t, doc)
}

func TestCompose_PreservesLineOrder(t *testing.T) {
	q := newQuote(t, shortItems(t, 40), quote.DefaultPayment())
	doc := compose(t, q, BankDetails{}, nil)

	var order []int
	for _, p := range doc.Pages {
		for _, r := range p.Rows {
			order = append(order, r.Index)
		}
	}
	require.Len(t, order, 40)
	for i, idx := range order {
		assert.Equal(t, i, idx)
	}
}

func TestCompose_LongItemsPaginate(t *testing.T) {
	desc := "Fourniture et pose de carrelage grès cérame grand format sur chape existante, " +
		"y compris ragréage, primaire d'accrochage, colle flexible, croisillons, joints époxy et plinthes assorties"
	items := make([]quote.LineItem, 60)
	for i := range items {
		items[i] = item(t, fmt.Sprintf("%d. %s", i+1, desc), 3, "42.00", "126.00")
	}
	q := newQuote(t, items, quote.DefaultPayment())
	doc := compose(t, q, testBank(), nil)

	require.GreaterOrEqual(t, doc.PageCount(), 2)

	company := DefaultCompanyProfile()
	for _, p := range doc.Pages {
		assert.True(t, p.HasText(company.Name), "header on page %d", p.Number)
		assert.True(t, p.HasText(fmt.Sprintf("Page %d/%d", p.Number, doc.PageCount())))
		if len(p.Rows) > 0 {
			assert.True(t, p.HasText(ColumnHeaders[0]), "column header on page %d", p.Number)
			assert.NotZero(t, p.ColumnHeaderY)
		}
		for _, r := range p.Rows {
			assert.Greater(t, len(r.Lines), 1, "long descriptions wrap")
			assert.LessOrEqual(t, r.Bottom(), doc.TableLimit, "row %d is not split", r.Index)
		}
	}

	// the first-page blocks are not repeated
	count, _ := countText(doc, TitleText)
	assert.Equal(t, 1, count)
	count, _ = countText(doc, "CLIENT:")
	assert.Equal(t, 1, count)

	// continuation pages start their table at the fixed offset
	assert.Equal(t, continuationTableY, doc.Pages[1].ColumnHeaderY)

	assert.Equal(t, "7560.00", doc.Totals.Subtotal.String())
	assertClosingFits(t, doc)
}

func TestCompose_ClosingBlockNeverSplit(t *testing.T) {
	// With single-line rows of 25pt starting at y=300, the check-payment
	// closing block (293pt) fits under 7 rows and not under 8.
	check := quote.Payment{Mode: quote.PaymentCheck, Deadline: quote.Deadline30Days}

	t.Run("block fits after the last row", func(t *testing.T) {
		doc := compose(t, newQuote(t, shortItems(t, 7), check), BankDetails{}, nil)

		require.Equal(t, 1, doc.PageCount())
		closing := doc.Pages[0].Closing
		require.NotNil(t, closing)
		assert.Equal(t, 475.0, closing.Top)
		assert.Equal(t, 293.0, closing.Height)
		assertClosingFits(t, doc)
	})

	t.Run("block moves whole to a new page", func(t *testing.T) {
		doc := compose(t, newQuote(t, shortItems(t, 8), check), BankDetails{}, nil)

		require.Equal(t, 2, doc.PageCount())
		assert.Nil(t, doc.Pages[0].Closing)
		assert.Len(t, doc.Pages[0].Rows, 8)

		second := doc.Pages[1]
		require.NotNil(t, second.Closing)
		assert.Equal(t, closingTopNewPage, second.Closing.Top)
		assert.Empty(t, second.Rows)
		assert.Zero(t, second.ColumnHeaderY)
		assert.False(t, second.HasText(ColumnHeaders[0]))
		assert.True(t, second.HasText(DefaultCompanyProfile().Name))
		assertClosingFits(t, doc)
	})

	t.Run("every boundary position", func(t *testing.T) {
		for n := 0; n <= 40; n++ {
			for _, payment := range []quote.Payment{check, quote.DefaultPayment()} {
				doc := compose(t, newQuote(t, shortItems(t, n), payment), testBank(), nil)
				assertClosingFits(t, doc)
			}
		}
	})
}

func TestCompose_RowsAreVerticallyCentred(t *testing.T) {
	desc := strings.Repeat("mot ", 30) + "fin"
	q := newQuote(t, []quote.LineItem{item(t, desc, 2, "5.00", "10.00")}, quote.DefaultPayment())
	doc := compose(t, q, BankDetails{}, nil)

	row := doc.Pages[0].Rows[0]
	n := len(row.Lines)
	require.Greater(t, n, 2)
	assert.Equal(t, float64(n)*lineHeight+rowPadding, row.Height)

	var baselines []float64
	var cells []float64
	for _, el := range doc.Pages[0].Texts {
		if el.Y < row.Top || el.Y > row.Bottom() {
			continue
		}
		switch el.X {
		case colDescription:
			baselines = append(baselines, el.Y)
		case colQuantity, colUnitPrice:
			cells = append(cells, el.Y)
		}
	}
	require.Len(t, baselines, n)
	textTop := row.Top + (row.Height-float64(n)*lineHeight)/2
	for i, y := range baselines {
		assert.InDelta(t, textTop+float64(i)*lineHeight+baselineDrop, y, 0.001)
	}

	// the block of lines is centred: equal space above and below
	above := baselines[0] - baselineDrop - row.Top
	below := row.Bottom() - (baselines[n-1] - baselineDrop + lineHeight)
	assert.InDelta(t, above, below, 0.001)

	require.Len(t, cells, 2)
	assert.InDelta(t, row.Top+row.Height/2+baselineDrop-lineHeight/2, cells[0], 0.001)
}

func TestCompose_EmptyQuote(t *testing.T) {
	doc := compose(t, newQuote(t, nil, quote.DefaultPayment()), BankDetails{}, nil)

	require.Equal(t, 1, doc.PageCount())
	assert.True(t, doc.Totals.Subtotal.IsZero())
	assert.True(t, doc.Pages[0].HasText("0.00 €"))
	assertClosingFits(t, doc)
}

func TestCompose_TotalsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		items := make([]quote.LineItem, rng.Intn(30))
		for i := range items {
			qty := decimal.NewFromInt(int64(rng.Intn(50) + 1))
			unit := valueobject.NewMoney(decimal.New(int64(rng.Intn(100000)), -2))
			items[i] = quote.NewLineItem(fmt.Sprintf("Poste %d", i), qty, unit, nil)
		}
		doc := compose(t, newQuote(t, items, quote.DefaultPayment()), BankDetails{}, nil)

		sum := valueobject.Zero()
		for _, it := range items {
			sum = sum.Add(it.LineTotal)
		}
		assert.True(t, doc.Totals.Subtotal.Equals(sum))
		assert.True(t, doc.Totals.Tax.Equals(sum.Multiply(quote.TaxRate).RoundCents()))
		assert.True(t, doc.Totals.Total.Equals(doc.Totals.Subtotal.Add(doc.Totals.Tax)))
	}
}

func TestCompose_BankBlock(t *testing.T) {
	lines := shortItems(t, 2)

	tests := []struct {
		name     string
		payment  quote.Payment
		bank     BankDetails
		expected bool
	}{
		{"transfer with details", quote.Payment{Mode: quote.PaymentTransfer, Deadline: quote.Deadline15Days}, testBank(), true},
		{"check", quote.Payment{Mode: quote.PaymentCheck, Deadline: quote.Deadline15Days}, testBank(), false},
		{"cash", quote.Payment{Mode: quote.PaymentCash, Deadline: quote.Deadline15Days}, testBank(), false},
		{"card", quote.Payment{Mode: quote.PaymentCard, Deadline: quote.Deadline15Days}, testBank(), false},
		{"transfer without details", quote.Payment{Mode: quote.PaymentTransfer, Deadline: quote.Deadline15Days}, BankDetails{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := compose(t, newQuote(t, lines, tt.payment), tt.bank, nil)
			assert.Equal(t, tt.expected, doc.Pages[0].HasText("COORDONNÉES BANCAIRES:"))
			assert.Equal(t, tt.expected, doc.Pages[0].HasText("BIC: AGRIFRPP891"))
		})
	}

	t.Run("partial details skip missing lines", func(t *testing.T) {
		doc := compose(t, newQuote(t, lines, quote.DefaultPayment()), BankDetails{IBAN: "FR76 0000"}, nil)
		page := doc.Pages[0]
		assert.True(t, page.HasText("COORDONNÉES BANCAIRES:"))
		assert.True(t, page.HasText("IBAN: FR76 0000"))
		assert.False(t, page.HasText("Banque: "))
		assert.Equal(t, 293.0+10+15+15, page.Closing.Height)
	})
}

func TestCompose_FallbacksAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	q := newQuote(t, shortItems(t, 1), quote.Payment{Mode: "crypto", Deadline: "90d"})
	q.Client.Phone = ""
	q.Client.Email = ""
	doc := compose(t, q, BankDetails{}, logger)

	page := doc.Pages[0]
	assert.True(t, page.HasText("• Modalités de paiement : "+quote.DefaultPaymentModeLabel))
	assert.True(t, page.HasText("• Nos prestations sont payables "+quote.DefaultPaymentDeadlineLabel))
	for _, el := range page.Texts {
		assert.False(t, strings.HasPrefix(el.Text, "Tél: 06"), "no client phone line")
		assert.False(t, strings.HasPrefix(el.Text, "Email: jean"), "no client email line")
	}

	assert.Equal(t, 1, logs.FilterMessage("Unknown payment mode, using default label").Len())
	assert.Equal(t, 1, logs.FilterMessage("Unknown payment deadline, using default label").Len())
	assert.Equal(t, 1, logs.FilterMessage("Client phone missing, line skipped").Len())
	assert.Equal(t, 1, logs.FilterMessage("Client email missing, line skipped").Len())
}

func TestCompose_MultiLineClientAddressPushesTable(t *testing.T) {
	q := newQuote(t, shortItems(t, 1), quote.DefaultPayment())
	q.Client.Address = "Résidence Les Pins\nBâtiment C\n145 boulevard de la Madeleine\n06000 Nice\nFrance"
	doc := compose(t, q, BankDetails{}, nil)

	page := doc.Pages[0]
	for _, line := range q.Client.AddressLines() {
		assert.True(t, page.HasText(line), "address line %q", line)
	}
	// name 200, 5 address lines, phone, email: last client line at 305
	assert.Equal(t, 330.0, page.ColumnHeaderY)
	assert.Equal(t, 350.0, page.Rows[0].Top)
}

func TestCompose_RowTallerThanAPage(t *testing.T) {
	desc := strings.Repeat("béton ", 400)
	q := newQuote(t, []quote.LineItem{item(t, desc, 1, "1.00", "1.00")}, quote.DefaultPayment())

	l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), BankDetails{}, nil, nil)
	require.ErrorIs(t, l.CheckFit(q), quote.ErrInvalidRecord)

	doc, err := l.Compose(q, mustNumber(t, 2025, 1), false)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, quote.ErrInvalidRecord)
	assert.NotErrorIs(t, err, ErrRenderFailure)
}

func TestCompose_RowFillingAnEmptyPage(t *testing.T) {
	// 5pt per rune, 230pt wide: 46 runes per line. 44 lines is the most an
	// empty continuation page holds.
	word := strings.Repeat("a", 45)
	fits := strings.TrimSpace(strings.Repeat(word+" ", 44))
	tooTall := strings.TrimSpace(strings.Repeat(word+" ", 45))

	l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), BankDetails{}, nil, nil)
	q := newQuote(t, []quote.LineItem{item(t, fits, 1, "1.00", "1.00")}, quote.DefaultPayment())
	require.NoError(t, l.CheckFit(q))
	doc, err := l.Compose(q, mustNumber(t, 2025, 1), false)
	require.NoError(t, err)
	assert.Len(t, doc.Pages[1].Rows, 1)
	assert.Empty(t, doc.Pages[0].Rows)

	q = newQuote(t, []quote.LineItem{item(t, tooTall, 1, "1.00", "1.00")}, quote.DefaultPayment())
	assert.ErrorIs(t, l.CheckFit(q), quote.ErrInvalidRecord)
}

func addressOf(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Bâtiment %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestCompose_TallClientBlock(t *testing.T) {
	t.Run("table moves to the next page", func(t *testing.T) {
		q := newQuote(t, shortItems(t, 2), quote.DefaultPayment())
		// 30 address lines, phone and email: last client line at 680
		q.Client.Address = addressOf(30)
		doc := compose(t, q, BankDetails{}, nil)

		require.GreaterOrEqual(t, len(doc.Pages), 2)
		first := doc.Pages[0]
		assert.True(t, first.HasText("Bâtiment 30"))
		assert.Empty(t, first.Rows)
		assert.Zero(t, first.ColumnHeaderY)
		for _, el := range first.Texts {
			assert.LessOrEqual(t, el.Y, PageHeight, "text %q below the page", el.Text)
		}

		second := doc.Pages[1]
		assert.Equal(t, continuationTableY, second.ColumnHeaderY)
		require.Len(t, second.Rows, 2)
		assert.Equal(t, continuationTableY+headerToRowGap, second.Rows[0].Top)
	})

	t.Run("block that cannot fit the first page", func(t *testing.T) {
		q := newQuote(t, shortItems(t, 1), quote.DefaultPayment())
		q.Client.Address = addressOf(60)

		l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), BankDetails{}, nil, nil)
		err := l.CheckFit(q)
		require.ErrorIs(t, err, quote.ErrInvalidRecord)
		assert.Contains(t, err.Error(), "client block has 62 lines, at most 32")

		doc, err := l.Compose(q, mustNumber(t, 2025, 1), false)
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, quote.ErrInvalidRecord)
	})

	t.Run("largest block that fits", func(t *testing.T) {
		q := newQuote(t, shortItems(t, 1), quote.DefaultPayment())
		q.Client.Address = addressOf(30)
		l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), BankDetails{}, nil, nil)
		assert.NoError(t, l.CheckFit(q))

		q.Client.Address = addressOf(31)
		assert.ErrorIs(t, l.CheckFit(q), quote.ErrInvalidRecord)
	})
}

func TestCompose_HeaderWithLogoShiftsCompanyText(t *testing.T) {
	logo := &Logo{Name: "logo-test.png", Type: "png"}
	l := NewLayout(fixedMeasurer{}, DefaultCompanyProfile(), BankDetails{}, logo, nil)
	doc, err := l.Compose(newQuote(t, shortItems(t, 1), quote.DefaultPayment()), mustNumber(t, 2025, 1), false)
	require.NoError(t, err)

	page := doc.Pages[0]
	require.Len(t, page.Images, 1)
	assert.Equal(t, ImageElement{X: logoX, Y: logoY, W: logoW, H: logoH, Logo: logo}, page.Images[0])
	for _, el := range page.Texts {
		if el.Text == DefaultCompanyProfile().Name && el.Font == fontName {
			assert.Equal(t, companyXWithLogo, el.X)
		}
	}
}
