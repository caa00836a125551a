package orders

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceCatalog is a trusted source of item prices. When a catalog is
// configured, client-supplied prices are ignored.
type PriceCatalog interface {
	// Price returns the listed price for an item name
	Price(name string) (decimal.Decimal, bool)
}

// MapCatalog is an in-memory PriceCatalog keyed by case-insensitive name
type MapCatalog struct {
	prices map[string]decimal.Decimal
}

// NewMapCatalog builds a catalog from name -> price
func NewMapCatalog(prices map[string]decimal.Decimal) *MapCatalog {
	c := &MapCatalog{prices: make(map[string]decimal.Decimal, len(prices))}
	for name, price := range prices {
		c.prices[catalogKey(name)] = price
	}
	return c
}

// LoadCatalogFile reads a JSON object of item name to price. Prices may be
// JSON numbers or numeric strings.
func LoadCatalogFile(path string) (*MapCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price catalog: %w", err)
	}

	var prices map[string]decimal.Decimal
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("parse price catalog %s: %w", path, err)
	}

	for name, price := range prices {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("price catalog %s: empty item name", path)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price catalog %s: negative price for %q", path, name)
		}
	}
	return NewMapCatalog(prices), nil
}

// Price implements PriceCatalog
func (c *MapCatalog) Price(name string) (decimal.Decimal, bool) {
	price, ok := c.prices[catalogKey(name)]
	return price, ok
}

// Len returns the number of listed items
func (c *MapCatalog) Len() int {
	return len(c.prices)
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
