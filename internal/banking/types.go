// Package banking describes the customer data the chatbot can look up and the
// locale-specific presentation of it.
package banking

import (
	"context"
	"time"
)

// Services is the banking data collaborator.
type Services interface {
	GetPerson(ctx context.Context, customerID int) (*Person, error)
	// GetAccounts returns the accounts of the given type. An unknown or empty
	// type returns every account.
	GetAccounts(ctx context.Context, customerID int, accountType string) ([]Account, error)
	// GetTransactions filters by category; empty or "all" means no filter.
	GetTransactions(ctx context.Context, customerID int, category string) (*TransactionSummary, error)
	// GetBranch matches location exactly and returns nil when nothing matches.
	GetBranch(ctx context.Context, location string) (*Branch, error)
}

type Address struct {
	Line1   string `json:"line1" yaml:"line1"`
	Line2   string `json:"line2,omitempty" yaml:"line2"`
	City    string `json:"city" yaml:"city"`
	State   string `json:"state" yaml:"state"`
	Zip     string `json:"zip" yaml:"zip"`
	Country string `json:"country" yaml:"country"`
}

type Person struct {
	FirstName          string  `json:"fname" yaml:"fname"`
	LastName           string  `json:"lname" yaml:"lname"`
	Address            Address `json:"address" yaml:"address"`
	CustomerID         int     `json:"customer_id" yaml:"customer_id"`
	ToneAngerThreshold float64 `json:"tone_anger_threshold" yaml:"tone_anger_threshold"`
}

type Account struct {
	Number               string  `json:"number" yaml:"number"`
	Type                 string  `json:"type" yaml:"type"`
	Balance              float64 `json:"balance" yaml:"balance"`
	AvailableCredit      float64 `json:"available_credit,omitempty" yaml:"available_credit"`
	LastStatementBalance float64 `json:"last_statement_balance,omitempty" yaml:"last_statement_balance"`
	PaymentDueDate       string  `json:"payment_due_date,omitempty" yaml:"payment_due_date"`
	MaturityDate         string  `json:"maturity_date,omitempty" yaml:"maturity_date"`
}

// TransactionDateLayout is the layout of Transaction.Date.
const TransactionDateLayout = "01-02-2006"

type Transaction struct {
	Amount        float64 `json:"amount" yaml:"amount"`
	AccountNumber string  `json:"account_number" yaml:"account_number"`
	Category      string  `json:"category" yaml:"category"`
	Description   string  `json:"description" yaml:"description"`
	Type          string  `json:"type" yaml:"type"`
	Date          string  `json:"date" yaml:"date"`
}

// Time parses Date.
func (t Transaction) Time() (time.Time, bool) {
	ts, err := time.Parse(TransactionDateLayout, t.Date)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

type TransactionSummary struct {
	Total        float64       `json:"total"`
	Category     string        `json:"category"`
	Transactions []Transaction `json:"transactions"`
}

type Branch struct {
	Location string `json:"location" yaml:"location"`
	Address  string `json:"address" yaml:"address"`
	Phone    string `json:"phone" yaml:"phone"`
	Hours    string `json:"hours" yaml:"hours"`
}
