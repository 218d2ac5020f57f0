package model

import "time"

// Ledger is one parsed SPED EFD file: metadata, the direction-bucketed
// document lists, the fuel hierarchy, the product catalog, and parse stats.
// Aggregate projections are computed separately (internal/aggregate) so that
// a rebuild from stored documents is possible without re-reading the file.
type Ledger struct {
	ID          string     `json:"id"`
	CompanyName string     `json:"company_name,omitempty"`
	CNPJ        string     `json:"cnpj,omitempty"`
	FileName    string     `json:"file_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Declared period from record 0000, when present.
	DeclaredStart *time.Time `json:"declared_start,omitempty"`
	DeclaredEnd   *time.Time `json:"declared_end,omitempty"`

	// Computed period: running min/max of valid document dates.
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	Inbound  []Document `json:"inbound,omitempty"`
	Outbound []Document `json:"outbound,omitempty"`

	Products      []FuelProduct       `json:"products,omitempty"`
	FuelDaily     []FuelDailyMovement `json:"fuel_daily,omitempty"`
	FuelTanks     []FuelTankMovement  `json:"fuel_tanks,omitempty"`
	FuelPumps     []FuelPumpVolume    `json:"fuel_pumps,omitempty"`

	Stats ParseStats `json:"stats"`
}

// Documents returns both direction buckets as a single slice.
func (l *Ledger) Documents() []Document {
	out := make([]Document, 0, len(l.Inbound)+len(l.Outbound))
	out = append(out, l.Inbound...)
	out = append(out, l.Outbound...)
	return out
}

// ParseStats tallies what the permissive parser skipped or coerced.
type ParseStats struct {
	Lines           int `json:"lines"`
	Records         int `json:"records"`
	UnknownRecords  int `json:"unknown_records"`
	MalformedLines  int `json:"malformed_lines"`
	DroppedItems    int `json:"dropped_items"`    // C190 with no current document
	DroppedDetails  int `json:"dropped_details"`  // C170 with no current document
	OrphanFuelTanks int `json:"orphan_fuel_tanks"` // 1310 with no 1300 in scope
	OrphanFuelPumps int `json:"orphan_fuel_pumps"` // 1320 with no 1310 in scope
	InvalidDates    int `json:"invalid_dates"`
}
