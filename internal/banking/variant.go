package banking

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Variant carries everything that differs between regional deployments of the
// chatbot: dataset, currency presentation and branch wording.
type Variant struct {
	Name           string
	Dataset        string
	Language       language.Tag
	CurrencyPrefix string
	// Printf formats taking location, address, phone and hours.
	BranchDetailsFormat string
	// Printf format taking the location as the customer typed it.
	BranchNotFoundFormat string
	// Whether branch lookups splice text into the reply when the dialog
	// engine does not say.
	BranchAppendDefault bool
}

var variants = map[string]Variant{
	"india": {
		Name:                 "india",
		Dataset:              "india",
		Language:             language.MustParse("en-IN"),
		CurrencyPrefix:       "INR ",
		BranchDetailsFormat:  "Here are the branch details at %s <br/>Address: %s<br/>Phone: %s<br/>Operation Hours: %s<br/>",
		BranchNotFoundFormat: "Sorry currently we don't have branch details for %s",
		BranchAppendDefault:  true,
	},
	"us": {
		Name:                 "us",
		Dataset:              "us",
		Language:             language.AmericanEnglish,
		CurrencyPrefix:       "$",
		BranchDetailsFormat:  "Here are the details of our %s branch <br/>Address: %s<br/>Phone: %s<br/>Hours: %s<br/>",
		BranchNotFoundFormat: "Sorry, we don't have branch details for %s yet",
		BranchAppendDefault:  true,
	},
}

// LookupVariant returns the named variant.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(variants))
		for n := range variants {
			names = append(names, n)
		}
		sort.Strings(names)
		return Variant{}, fmt.Errorf("unknown banking variant %q (known: %s)", name, strings.Join(names, ", "))
	}
	return v, nil
}

// Money renders amount with the variant's currency prefix, locale grouping and
// two decimals. A negative sign goes before the prefix.
func (v Variant) Money(amount float64) string {
	p := message.NewPrinter(v.Language)
	if amount < 0 {
		return "-" + v.CurrencyPrefix + p.Sprintf("%.2f", -amount)
	}
	return v.CurrencyPrefix + p.Sprintf("%.2f", amount)
}

// BranchText renders a lookup hit, or the apology for location when b is nil.
func (v Variant) BranchText(location string, b *Branch) string {
	if b == nil {
		return fmt.Sprintf(v.BranchNotFoundFormat, location)
	}
	return fmt.Sprintf(v.BranchDetailsFormat, b.Location, b.Address, b.Phone, b.Hours)
}

// AccountView is an account with its monetary fields rendered for display.
type AccountView struct {
	Number               string `json:"number"`
	Type                 string `json:"type"`
	Balance              string `json:"balance"`
	AvailableCredit      string `json:"available_credit,omitempty"`
	LastStatementBalance string `json:"last_statement_balance,omitempty"`
	PaymentDueDate       string `json:"payment_due_date,omitempty"`
	MaturityDate         string `json:"maturity_date,omitempty"`
}

// FormatAccount renders a's monetary fields. Zero amounts render empty.
func (v Variant) FormatAccount(a Account) AccountView {
	return AccountView{
		Number:               a.Number,
		Type:                 a.Type,
		Balance:              v.moneyOrEmpty(a.Balance),
		AvailableCredit:      v.moneyOrEmpty(a.AvailableCredit),
		LastStatementBalance: v.moneyOrEmpty(a.LastStatementBalance),
		PaymentDueDate:       a.PaymentDueDate,
		MaturityDate:         a.MaturityDate,
	}
}

func (v Variant) moneyOrEmpty(amount float64) string {
	if amount == 0 {
		return ""
	}
	return v.Money(amount)
}
