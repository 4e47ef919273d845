package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"banking-chatbot-backend/internal/banking"
)

//go:embed data/*.yaml
var datasets embed.FS

// Dataset is the full set of records a banking collaborator serves.
type Dataset struct {
	Person       banking.Person        `yaml:"person"`
	Accounts     []banking.Account     `yaml:"accounts"`
	Transactions []banking.Transaction `yaml:"transactions"`
	Branches     []banking.Branch      `yaml:"branches"`
}

// LoadDataset returns one of the datasets bundled with the binary.
func LoadDataset(name string) (*Dataset, error) {
	b, err := datasets.ReadFile("data/" + name + ".yaml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no bundled dataset %q", name)
		}
		return nil, err
	}
	return parseDataset(b)
}

// LoadDatasetFile reads a dataset from disk, for deployments that bring their
// own demo data.
func LoadDatasetFile(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return parseDataset(b)
}

func parseDataset(b []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if ds.Person.CustomerID == 0 {
		return nil, fmt.Errorf("dataset has no customer")
	}
	for i, t := range ds.Transactions {
		if _, ok := t.Time(); !ok {
			return nil, fmt.Errorf("transaction %d: date %q is not %s", i, t.Date, banking.TransactionDateLayout)
		}
	}
	return &ds, nil
}
