package domain

import "strings"

// Currency identifies a currency quoted by the NBP together with the rate
// table it is published in.
type Currency struct {
	Code  string `json:"code"`
	Table string `json:"table"`
	Name  string `json:"name"`
}

func (c Currency) String() string {
	return c.Code
}

var (
	USD = Currency{Code: "USD", Table: "A", Name: "United States Dollar"}
	THB = Currency{Code: "THB", Table: "A", Name: "Thai Baht"}
	AUD = Currency{Code: "AUD", Table: "A", Name: "Australian Dollar"}
	HKD = Currency{Code: "HKD", Table: "A", Name: "Hong Kong Dollar"}
	CAD = Currency{Code: "CAD", Table: "A", Name: "Canadian Dollar"}
	NZD = Currency{Code: "NZD", Table: "A", Name: "New Zealand Dollar"}
	EUR = Currency{Code: "EUR", Table: "A", Name: "European Euro"}
	// PLN is the base currency; the NBP has no table for it.
	PLN = Currency{Code: "PLN", Table: "", Name: "Polish Zloty"}
)

// SupportedCurrencies lists every currency known at build time.
var SupportedCurrencies = []Currency{USD, THB, AUD, HKD, CAD, NZD, EUR, PLN}

// currencyByCode is the reverse lookup of SupportedCurrencies.
var currencyByCode map[string]Currency

func init() {
	currencyByCode = make(map[string]Currency, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		currencyByCode[c.Code] = c
	}
}

// LookupCurrency resolves a code such as "eur" to its Currency.
func LookupCurrency(code string) (Currency, error) {
	c, ok := currencyByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, ErrUnsupportedCurrency
	}
	return c, nil
}

// TabledCurrencies returns the currencies that have an NBP rate table.
func TabledCurrencies() []Currency {
	out := make([]Currency, 0, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		if c.Table != "" {
			out = append(out, c)
		}
	}
	return out
}
