package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultCountry = "default"

// TaxCategories maps category codes to tax rates in percent.
type TaxCategories struct {
	defaultCategory string
	rates           map[string]decimal.Decimal
	countries       map[string]map[string]decimal.Decimal
}

// ParseTaxCategories reads the raw configuration string. Each line is a
// whitespace separated list of CODE:RATE tokens such as "A:20 B:10 C:0",
// optionally prefixed with a country code ("At A:20 B:10"). Lines without a
// prefix, or prefixed with "default", form the default table.
func ParseTaxCategories(defaultCategory, raw string) (*TaxCategories, error) {
	tc := &TaxCategories{
		defaultCategory: strings.TrimSpace(defaultCategory),
		rates:           make(map[string]decimal.Decimal),
		countries:       make(map[string]map[string]decimal.Decimal),
	}

	for _, line := range strings.Split(raw, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		table := tc.rates
		if len(tokens) > 1 && !strings.Contains(tokens[0], ":") {
			country := tokens[0]
			tokens = tokens[1:]
			if !strings.EqualFold(country, defaultCountry) {
				table = make(map[string]decimal.Decimal)
				tc.countries[strings.ToLower(country)] = table
			}
		}

		for _, token := range tokens {
			code, rate, err := parseTaxToken(token)
			if err != nil {
				return nil, err
			}
			table[code] = rate
		}
	}

	if tc.defaultCategory != "" {
		if _, ok := tc.rates[tc.defaultCategory]; !ok {
			return nil, fmt.Errorf("default tax category %q is not defined", tc.defaultCategory)
		}
	}

	return tc, nil
}

func parseTaxToken(token string) (string, decimal.Decimal, error) {
	code, rawRate, ok := strings.Cut(token, ":")
	if !ok || code == "" {
		return "", decimal.Zero, fmt.Errorf("malformed tax category %q", token)
	}
	rate, err := decimal.NewFromString(rawRate)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("malformed tax rate for category %q: %w", code, err)
	}
	if rate.IsNegative() {
		return "", decimal.Zero, fmt.Errorf("negative tax rate for category %q", code)
	}
	return code, rate, nil
}

func (t *TaxCategories) DefaultCategory() string {
	return t.defaultCategory
}

// Rate resolves the category against the default table, substituting the
// default category for an empty code. The returned code is the one actually
// used; found is false for unknown codes.
func (t *TaxCategories) Rate(category string) (rate decimal.Decimal, code string, found bool) {
	return t.lookup(t.rates, category)
}

// CountryRate resolves the category against a country table. Countries
// without a table, and codes the country table does not list, use the default
// table.
func (t *TaxCategories) CountryRate(country, category string) (rate decimal.Decimal, code string, found bool) {
	if table, ok := t.countries[strings.ToLower(country)]; ok {
		if rate, code, found := t.lookup(table, category); found {
			return rate, code, true
		}
	}
	return t.lookup(t.rates, category)
}

func (t *TaxCategories) lookup(table map[string]decimal.Decimal, category string) (decimal.Decimal, string, bool) {
	code := category
	if code == "" {
		code = t.defaultCategory
	}
	rate, found := table[code]
	if !found {
		return decimal.Zero, code, false
	}
	return rate, code, true
}

func (t *TaxCategories) Len() int {
	return len(t.rates)
}
