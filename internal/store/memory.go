package store

import (
	"context"
	"errors"
	"strings"

	"banking-chatbot-backend/internal/banking"
)

var ErrCustomerNotFound = errors.New("customer not found")

// MemoryStore serves a single customer's records from an in-memory dataset.
// The dataset is never mutated after construction, so no locking is needed.
type MemoryStore struct {
	ds Dataset
}

func NewMemoryStore(ds *Dataset) *MemoryStore {
	return &MemoryStore{ds: *ds}
}

func (m *MemoryStore) checkCustomer(customerID int) error {
	if customerID != m.ds.Person.CustomerID {
		return ErrCustomerNotFound
	}
	return nil
}

func (m *MemoryStore) GetPerson(_ context.Context, customerID int) (*banking.Person, error) {
	if err := m.checkCustomer(customerID); err != nil {
		return nil, err
	}
	p := m.ds.Person
	return &p, nil
}

func (m *MemoryStore) GetAccounts(_ context.Context, customerID int, accountType string) ([]banking.Account, error) {
	if err := m.checkCustomer(customerID); err != nil {
		return nil, err
	}
	var out []banking.Account
	for _, a := range m.ds.Accounts {
		if a.Type == accountType {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = append([]banking.Account(nil), m.ds.Accounts...)
	}
	return out, nil
}

func (m *MemoryStore) GetTransactions(_ context.Context, customerID int, category string) (*banking.TransactionSummary, error) {
	if err := m.checkCustomer(customerID); err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	filter := category != "" && category != "all"
	resp := &banking.TransactionSummary{Category: "all", Transactions: []banking.Transaction{}}
	if filter {
		resp.Category = category
	}
	for _, t := range m.ds.Transactions {
		if filter && t.Category != category {
			continue
		}
		resp.Transactions = append(resp.Transactions, t)
		resp.Total += t.Amount
	}
	return resp, nil
}

func (m *MemoryStore) GetBranch(_ context.Context, location string) (*banking.Branch, error) {
	for _, b := range m.ds.Branches {
		if b.Location == location {
			br := b
			return &br, nil
		}
	}
	return nil, nil
}
