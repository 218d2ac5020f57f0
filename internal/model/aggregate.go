package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayAggregate sums operation values per (direction, document date).
type DayAggregate struct {
	Direction Direction       `json:"direction"`
	Date      time.Time       `json:"date"`
	Value     decimal.Decimal `json:"value"`
	Items     int             `json:"items"`
}

// CodeAggregate sums operation values per (direction, CFOP).
type CodeAggregate struct {
	Direction Direction       `json:"direction"`
	CFOP      string          `json:"cfop"`
	Value     decimal.Decimal `json:"value"`
	Items     int             `json:"items"`
}

// DayCodeAggregate sums operation values per (direction, date, CFOP). This
// is the granularity the reconciliation engine joins on.
type DayCodeAggregate struct {
	Direction Direction       `json:"direction"`
	Date      time.Time       `json:"date"`
	CFOP      string          `json:"cfop"`
	Value     decimal.Decimal `json:"value"`
	Items     int             `json:"items"`
}
