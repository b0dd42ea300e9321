package models

import (
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the GORM model for the clients table
type ClientModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	FirstName string    `gorm:"column:first_name;type:varchar(100)"`
	LastName  string    `gorm:"column:last_name;type:varchar(100);not null"`
	Address   string    `gorm:"type:text"`
	Phone     string    `gorm:"type:varchar(30)"`
	Email     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for ClientModel
func (ClientModel) TableName() string {
	return "clients"
}

// QuoteModel is the GORM model for the quotes table. Number is NULL for
// legacy rows stored before numbering existed.
type QuoteModel struct {
	ID              int64            `gorm:"primaryKey;autoIncrement"`
	Number          *string          `gorm:"type:varchar(20);uniqueIndex:idx_quotes_number"`
	ClientID        int64            `gorm:"column:client_id;not null;index"`
	Client          ClientModel      `gorm:"foreignKey:ClientID"`
	Subtotal        decimal.Decimal  `gorm:"column:subtotal;type:decimal(12,2);not null"`
	Tax             decimal.Decimal  `gorm:"column:tax;type:decimal(12,2);not null"`
	Total           decimal.Decimal  `gorm:"column:total;type:decimal(12,2);not null"`
	Status          string           `gorm:"type:varchar(20);not null;default:'brouillon'"`
	PaymentMode     string           `gorm:"column:payment_mode;type:varchar(20);not null"`
	PaymentDeadline string           `gorm:"column:payment_deadline;type:varchar(20);not null"`
	Lines           []QuoteLineModel `gorm:"foreignKey:QuoteID"`
	CreatedAt       time.Time        `gorm:"not null;index"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

// TableName returns the table name for QuoteModel
func (QuoteModel) TableName() string {
	return "quotes"
}

// QuoteLineModel is the GORM model for the quote_lines table
type QuoteLineModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	QuoteID       int64           `gorm:"column:quote_id;not null;index"`
	Position      int             `gorm:"not null"`
	Description   string          `gorm:"type:text;not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:decimal(12,2);not null"`
	ServiceTypeID *int64          `gorm:"column:service_type_id"`
}

// TableName returns the table name for QuoteLineModel
func (QuoteLineModel) TableName() string {
	return "quote_lines"
}

// QuoteNumberModel is one reservation of the numbering ledger. The primary
// key on (year, sequence) is what makes a reservation exclusive.
type QuoteNumberModel struct {
	Year       int       `gorm:"primaryKey;autoIncrement:false"`
	Sequence   int       `gorm:"primaryKey;autoIncrement:false"`
	Number     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_quote_numbers_number"`
	ReservedAt time.Time `gorm:"column:reserved_at;not null"`
}

// TableName returns the table name for QuoteNumberModel
func (QuoteNumberModel) TableName() string {
	return "quote_numbers"
}

// SignatureModel is the GORM model for the signatures table
type SignatureModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	QuoteID      int64     `gorm:"column:quote_id;not null;uniqueIndex:idx_signatures_quote"`
	Data         string    `gorm:"type:text;not null"`
	ClientIP     string    `gorm:"column:client_ip;type:varchar(45)"`
	DocumentHash string    `gorm:"column:document_hash;type:varchar(64)"`
	SignedAt     time.Time `gorm:"column:signed_at;not null"`
}

// TableName returns the table name for SignatureModel
func (SignatureModel) TableName() string {
	return "signatures"
}

// ServiceTypeModel is the GORM model for the service_types table
type ServiceTypeModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Name      string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Unit      string          `gorm:"type:varchar(20);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
}

// TableName returns the table name for ServiceTypeModel
func (ServiceTypeModel) TableName() string {
	return "service_types"
}

// QuoteModelFromDomain creates a QuoteModel with its client and lines
func QuoteModelFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{
		ID:       q.ID,
		ClientID: q.Client.ID,
		Client: ClientModel{
			ID:        q.Client.ID,
			FirstName: q.Client.FirstName,
			LastName:  q.Client.LastName,
			Address:   q.Client.Address,
			Phone:     q.Client.Phone,
			Email:     q.Client.Email,
			CreatedAt: q.CreatedAt,
		},
		Subtotal:        q.Totals.Subtotal.Amount(),
		Tax:             q.Totals.Tax.Amount(),
		Total:           q.Totals.Total.Amount(),
		Status:          string(q.Status),
		PaymentMode:     string(q.Payment.Mode),
		PaymentDeadline: string(q.Payment.Deadline),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	if !q.Number.IsZero() {
		n := q.Number.String()
		m.Number = &n
	}
	m.Lines = make([]QuoteLineModel, len(q.Lines))
	for i, l := range q.Lines {
		m.Lines[i] = QuoteLineModel{
			Position:      i + 1,
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice.Amount(),
			LineTotal:     l.LineTotal.Amount(),
			ServiceTypeID: l.ServiceTypeID,
		}
	}
	return m
}

// ToDomain converts QuoteModel to domain Quote. Lines must already be
// ordered by position. A stored number that does not parse is dropped so
// the document falls back to the identifier derived from the id.
func (m *QuoteModel) ToDomain() *quote.Quote {
	q := &quote.Quote{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Client: quote.Client{
			ID:        m.Client.ID,
			FirstName: m.Client.FirstName,
			LastName:  m.Client.LastName,
			Address:   m.Client.Address,
			Phone:     m.Client.Phone,
			Email:     m.Client.Email,
		},
		Payment: quote.Payment{
			Mode:     quote.PaymentMode(m.PaymentMode),
			Deadline: quote.PaymentDeadline(m.PaymentDeadline),
		},
		Status: quote.Status(m.Status),
		Totals: quote.Totals{
			Subtotal: valueobject.NewMoney(m.Subtotal),
			Tax:      valueobject.NewMoney(m.Tax),
			Total:    valueobject.NewMoney(m.Total),
		},
	}
	if m.Number != nil {
		if n, err := quote.ParseNumber(*m.Number); err == nil {
			q.Number = n
		}
	}
	q.Lines = make([]quote.LineItem, len(m.Lines))
	for i, l := range m.Lines {
		q.Lines[i] = l.ToDomain()
	}
	return q
}

// ToDomain converts QuoteLineModel to a domain LineItem
func (m *QuoteLineModel) ToDomain() quote.LineItem {
	total := valueobject.NewMoney(m.LineTotal)
	item := quote.NewLineItem(m.Description, m.Quantity, valueobject.NewMoney(m.UnitPrice), &total)
	item.ServiceTypeID = m.ServiceTypeID
	return item
}

// ToSummary converts QuoteModel to a history row
func (m *QuoteModel) ToSummary() quote.Summary {
	q := m.ToDomain()
	return quote.Summary{
		ID:          q.ID,
		Number:      q.Number,
		ClientName:  q.Client.FullName(),
		ClientEmail: q.Client.Email,
		Totals:      q.Totals,
		Status:      q.Status,
		CreatedAt:   q.CreatedAt,
	}
}

// SignatureModelFromDomain creates a SignatureModel from a domain Signature
func SignatureModelFromDomain(s *quote.Signature) *SignatureModel {
	return &SignatureModel{
		ID:           s.ID,
		QuoteID:      s.QuoteID,
		Data:         s.Data,
		ClientIP:     s.ClientIP,
		DocumentHash: s.DocumentHash,
		SignedAt:     s.SignedAt,
	}
}

// ToDomain converts SignatureModel to a domain Signature
func (m *SignatureModel) ToDomain() *quote.Signature {
	return &quote.Signature{
		ID:           m.ID,
		QuoteID:      m.QuoteID,
		Data:         m.Data,
		ClientIP:     m.ClientIP,
		DocumentHash: m.DocumentHash,
		SignedAt:     m.SignedAt,
	}
}

// ToDomain converts ServiceTypeModel to a domain ServiceType
func (m *ServiceTypeModel) ToDomain() quote.ServiceType {
	return quote.ServiceType{
		ID:        m.ID,
		Name:      m.Name,
		Unit:      m.Unit,
		UnitPrice: valueobject.NewMoney(m.UnitPrice),
	}
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&ClientModel{},
		&QuoteModel{},
		&QuoteLineModel{},
		&QuoteNumberModel{},
		&SignatureModel{},
		&ServiceTypeModel{},
	}
}
