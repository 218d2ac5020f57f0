// Package nfekey parses and validates 44-digit NF-e access keys.
//
// Key layout: UF(2) AAMM(4) CNPJ(14) model(2) series(3) number(9)
// emission-type(1) numeric code(8) check digit(1, mod-11).
package nfekey

import "github.com/rotisserie/eris"

// Key is a decomposed NF-e access key.
type Key struct {
	UF        string
	YearMonth string
	CNPJ      string
	Model     string
	Series    string
	Number    string
	Raw       string
}

// Parse splits a 44-digit access key into its components. It fails only on
// structural problems (wrong length, non-digits); use Valid for the check
// digit.
func Parse(raw string) (Key, error) {
	if len(raw) != 44 {
		return Key{}, eris.Errorf("nfekey: want 44 digits, got %d", len(raw))
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return Key{}, eris.New("nfekey: non-digit character in key")
		}
	}
	return Key{
		UF:        raw[0:2],
		YearMonth: raw[2:6],
		CNPJ:      raw[6:20],
		Model:     raw[20:22],
		Series:    raw[22:25],
		Number:    raw[25:34],
		Raw:       raw,
	}, nil
}

// Valid reports whether the final digit matches the mod-11 check over the
// first 43 digits.
func Valid(raw string) bool {
	if _, err := Parse(raw); err != nil {
		return false
	}
	weight := 2
	sum := 0
	for i := 42; i >= 0; i-- {
		sum += int(raw[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		dv = 0
	}
	return dv == int(raw[43]-'0')
}
