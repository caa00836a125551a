// Package orders validates untrusted line items, prices them and places
// orders for an authenticated owner.
package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/services"
)

// User-facing validation messages
const (
	msgItemsRequired = "items must be a non-empty array"
	msgItemObject    = "each item must be an object"
	msgItemName      = "item name (or itemId) is required"
	msgQtyRange      = "qty must be 1..99"
	msgTotalRange    = "order total is out of range"
)

var taxRate = decimal.NewFromFloat(models.TaxRate)

// Pricing is the result of normalizing a line item list
type Pricing struct {
	Items    []models.LineItem
	Subtotal float64
	TaxRate  float64
	Tax      float64
	Total    float64
}

// Normalizer validates and prices line items. A nil catalog trusts the
// price supplied with each item.
type Normalizer struct {
	catalog PriceCatalog
}

// NewNormalizer creates a Normalizer. catalog may be nil.
func NewNormalizer(catalog PriceCatalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// Normalize prices items using client-supplied prices
func Normalize(items any) (*Pricing, error) {
	return (&Normalizer{}).Normalize(items)
}

// DecodeJSON decodes a JSON document keeping numbers as json.Number so
// quantities and prices are not rounded through float64 before validation.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Normalize validates every item and computes subtotal, tax and total.
// The first invalid item rejects the whole list.
func (n *Normalizer) Normalize(items any) (*Pricing, error) {
	list, ok := items.([]any)
	if !ok || len(list) == 0 {
		return nil, services.InvalidInput(msgItemsRequired)
	}

	out := make([]models.LineItem, 0, len(list))
	subtotal := decimal.Zero

	for i, raw := range list {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, services.InvalidInput(msgItemObject).WithDetail("index", i)
		}

		name := strings.TrimSpace(nameValue(fields["name"]))
		if name == "" {
			name = strings.TrimSpace(nameValue(fields["itemId"]))
		}
		if name == "" {
			return nil, services.InvalidInput(msgItemName).WithDetail("index", i)
		}

		qty, ok := qtyValue(fields["qty"])
		if !ok {
			return nil, services.InvalidInput(msgQtyRange).WithDetail("index", i)
		}

		price := priceValue(fields["price"])
		if n.catalog != nil {
			listed, found := n.catalog.Price(name)
			if !found {
				return nil, services.InvalidInput(fmt.Sprintf("unknown item: %s", name)).WithDetail("index", i)
			}
			price = listed
		}

		lineTotal := price.Mul(decimal.NewFromInt(int64(qty)))
		lineFloat := lineTotal.InexactFloat64()
		if math.IsInf(lineFloat, 0) {
			return nil, services.InvalidInput(msgTotalRange).WithDetail("index", i)
		}
		subtotal = subtotal.Add(lineTotal)

		out = append(out, models.LineItem{
			Name:      name,
			Qty:       qty,
			Price:     price.InexactFloat64(),
			LineTotal: lineFloat,
		})
	}

	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(tax).InexactFloat64()
	if math.IsInf(total, 0) {
		return nil, services.InvalidInput(msgTotalRange)
	}
	return &Pricing{
		Items:    out,
		Subtotal: subtotal.InexactFloat64(),
		TaxRate:  models.TaxRate,
		Tax:      tax.InexactFloat64(),
		Total:    total,
	}, nil
}

// NormalizeJSON decodes a JSON array of items and normalizes it
func (n *Normalizer) NormalizeJSON(data []byte) (*Pricing, error) {
	items, err := DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, services.InvalidInput(msgItemsRequired)
	}
	return n.Normalize(items)
}

func nameValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// qtyValue accepts an integer-valued number or a string holding one.
// The range is checked on a float64 so exponent-heavy input never reaches
// arbitrary precision arithmetic.
func qtyValue(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, ok := parseFinite(t.String())
		if !ok {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseFinite(strings.TrimSpace(t))
		if !ok {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		return 0, false
	}

	if math.IsNaN(f) || f < models.MinQty || f > models.MaxQty || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// priceValue coerces v to a finite amount, 0 when absent or unparseable
func priceValue(v any) decimal.Decimal {
	var f float64
	switch t := v.(type) {
	case json.Number:
		f, _ = parseFinite(t.String())
	case string:
		f, _ = parseFinite(strings.TrimSpace(t))
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// parseFinite parses s as a float64, rejecting overflow, NaN and Inf.
// Values below the smallest float64 parse as zero.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
