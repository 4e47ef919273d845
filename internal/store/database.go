package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/db"
)

// DatabaseStore serves banking records from PostgreSQL.
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

func (ds *DatabaseStore) GetPerson(ctx context.Context, customerID int) (*banking.Person, error) {
	var p banking.Person
	err := ds.db.QueryRowContext(ctx, `
		SELECT customer_id, fname, lname, address_line1, address_line2, city, state, zip, country, tone_anger_threshold
		FROM customers
		WHERE customer_id = $1
	`, customerID).Scan(
		&p.CustomerID,
		&p.FirstName,
		&p.LastName,
		&p.Address.Line1,
		&p.Address.Line2,
		&p.Address.City,
		&p.Address.State,
		&p.Address.Zip,
		&p.Address.Country,
		&p.ToneAngerThreshold,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &p, nil
}

const accountColumns = `number, type, balance, available_credit, last_statement_balance, payment_due_date, maturity_date`

func (ds *DatabaseStore) GetAccounts(ctx context.Context, customerID int, accountType string) ([]banking.Account, error) {
	accounts, err := ds.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE customer_id = $1 AND type = $2
		ORDER BY id
	`, customerID, accountType)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		return accounts, nil
	}
	return ds.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE customer_id = $1
		ORDER BY id
	`, customerID)
}

func (ds *DatabaseStore) queryAccounts(ctx context.Context, query string, args ...any) ([]banking.Account, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []banking.Account
	for rows.Next() {
		var a banking.Account
		if err := rows.Scan(&a.Number, &a.Type, &a.Balance, &a.AvailableCredit, &a.LastStatementBalance, &a.PaymentDueDate, &a.MaturityDate); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) GetTransactions(ctx context.Context, customerID int, category string) (*banking.TransactionSummary, error) {
	category = strings.TrimSpace(category)
	filter := category != "" && category != "all"

	query := `
		SELECT amount, account_number, category, description, type, posted_on
		FROM transactions
		WHERE customer_id = $1`
	args := []any{customerID}
	if filter {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	resp := &banking.TransactionSummary{Category: "all", Transactions: []banking.Transaction{}}
	if filter {
		resp.Category = category
	}
	for rows.Next() {
		var t banking.Transaction
		var posted time.Time
		if err := rows.Scan(&t.Amount, &t.AccountNumber, &t.Category, &t.Description, &t.Type, &posted); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Date = posted.Format(banking.TransactionDateLayout)
		resp.Transactions = append(resp.Transactions, t)
		resp.Total += t.Amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (ds *DatabaseStore) GetBranch(ctx context.Context, location string) (*banking.Branch, error) {
	var b banking.Branch
	err := ds.db.QueryRowContext(ctx, `
		SELECT location, address, phone, hours
		FROM branches
		WHERE location = $1
	`, location).Scan(&b.Location, &b.Address, &b.Phone, &b.Hours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &b, nil
}

// Seed loads d into empty tables. A database that already holds the customer
// is left untouched.
func (ds *DatabaseStore) Seed(ctx context.Context, d *Dataset) error {
	var exists bool
	if err := ds.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)", d.Person.CustomerID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if exists {
		return nil
	}

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := d.Person
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO customers (customer_id, fname, lname, address_line1, address_line2, city, state, zip, country, tone_anger_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.CustomerID, p.FirstName, p.LastName, p.Address.Line1, p.Address.Line2, p.Address.City, p.Address.State, p.Address.Zip, p.Address.Country, p.ToneAngerThreshold); err != nil {
		return fmt.Errorf("failed to seed customer: %w", err)
	}
	for _, a := range d.Accounts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (customer_id, number, type, balance, available_credit, last_statement_balance, payment_due_date, maturity_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.CustomerID, a.Number, a.Type, a.Balance, a.AvailableCredit, a.LastStatementBalance, a.PaymentDueDate, a.MaturityDate); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.Number, err)
		}
	}
	for _, t := range d.Transactions {
		posted, ok := t.Time()
		if !ok {
			return fmt.Errorf("transaction %q has invalid date %q", t.Description, t.Date)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (customer_id, account_number, amount, category, description, type, posted_on)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.CustomerID, t.AccountNumber, t.Amount, t.Category, t.Description, t.Type, posted); err != nil {
			return fmt.Errorf("failed to seed transaction: %w", err)
		}
	}
	for _, b := range d.Branches {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO branches (location, address, phone, hours)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (location) DO NOTHING
		`, b.Location, b.Address, b.Phone, b.Hours); err != nil {
			return fmt.Errorf("failed to seed branch %s: %w", b.Location, err)
		}
	}
	return tx.Commit()
}
