package printing

import (
	"fmt"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
)

// CompanyProfile is the issuing company printed in every page header and footer
type CompanyProfile struct {
	Name    string
	Address string // free text, one line per \n
	Phone   string
	Email   string
	SIRET   string
	RCS     string
	TVA     string
	APE     string
	Capital string
	// LogoPath is optional. When the file is missing or unreadable the
	// header is drawn text-only.
	LogoPath string
}

// DefaultCompanyProfile returns the identity of SASU NFS BATIMENT
func DefaultCompanyProfile() CompanyProfile {
	return CompanyProfile{
		Name:    "SASU NFS BATIMENT",
		Address: "23 RUE GUIGLIONDA DE STE AGATHE\n06300 NICE\nFrance",
		Phone:   "07 62 72 35 12",
		Email:   "nfsbezzar@gmail.com",
		SIRET:   "911 840 122 00012",
		RCS:     "911 840 122 R.C.S. Nice",
		TVA:     "FR01911840122",
		APE:     "4334Z",
		Capital: "1500 €",
	}
}

// AddressLines returns the address split on explicit line breaks
func (c CompanyProfile) AddressLines() []string {
	return quote.SplitLines(c.Address)
}

// contactLine is the "Tél | Email" header line; empty parts are skipped
func (c CompanyProfile) contactLine() string {
	switch {
	case c.Phone != "" && c.Email != "":
		return fmt.Sprintf("Tél: %s | Email: %s", c.Phone, c.Email)
	case c.Phone != "":
		return "Tél: " + c.Phone
	case c.Email != "":
		return "Email: " + c.Email
	}
	return ""
}

// legalLines is the right-aligned registration block
func (c CompanyProfile) legalLines() []string {
	var lines []string
	if c.SIRET != "" {
		lines = append(lines, "SIRET: "+c.SIRET)
	}
	if c.RCS != "" {
		lines = append(lines, c.RCS)
	}
	if c.TVA != "" {
		lines = append(lines, "N° TVA: "+c.TVA)
	}
	if c.APE != "" {
		lines = append(lines, "Code APE: "+c.APE)
	}
	if c.Capital != "" {
		lines = append(lines, "Capital: "+c.Capital)
	}
	return lines
}

func (c CompanyProfile) footerLines() [2]string {
	return [2]string{
		fmt.Sprintf("%s - %s - %s - APE: %s", c.Name, c.SIRET, c.RCS, c.APE),
		fmt.Sprintf("Capital: %s - TVA: %s", c.Capital, c.TVA),
	}
}

// BankDetails are printed when the quote is payable by transfer
type BankDetails struct {
	Name string
	IBAN string
	BIC  string
}

// lines returns the present bank fields; nil when none is set
func (b BankDetails) lines() []string {
	var lines []string
	if b.Name != "" {
		lines = append(lines, "Banque: "+b.Name)
	}
	if b.IBAN != "" {
		lines = append(lines, "IBAN: "+b.IBAN)
	}
	if b.BIC != "" {
		lines = append(lines, "BIC: "+b.BIC)
	}
	return lines
}
