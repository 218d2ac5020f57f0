package model

import "time"

// FuelProduct is one 0200 catalog entry, deduplicated by code.
type FuelProduct struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	Type        string `json:"type,omitempty"`
}

// FuelDailyMovement is a 1300 record: one per (product, date). Quantities
// are liters.
type FuelDailyMovement struct {
	ProductCode     string     `json:"product_code"`
	Date            *time.Time `json:"date"`
	Opening         float64    `json:"opening"`
	Incoming        float64    `json:"incoming"`
	Available       float64    `json:"available"`
	Sold            float64    `json:"sold"`
	BookClosing     float64    `json:"book_closing"`
	Loss            float64    `json:"loss"`
	Gain            float64    `json:"gain"`
	PhysicalClosing float64    `json:"physical_closing"`
}

// FuelTankMovement is a 1310 record. Product code and date are inherited
// from the governing 1300.
type FuelTankMovement struct {
	ProductCode     string     `json:"product_code"`
	Date            *time.Time `json:"date"`
	TankNumber      string     `json:"tank_number"`
	Opening         float64    `json:"opening"`
	Incoming        float64    `json:"incoming"`
	Available       float64    `json:"available"`
	Sold            float64    `json:"sold"`
	BookClosing     float64    `json:"book_closing"`
	Loss            float64    `json:"loss"`
	Gain            float64    `json:"gain"`
	PhysicalClosing float64    `json:"physical_closing"`
}

// FuelPumpVolume is a 1320 record. Product code and date come from the
// governing 1300, tank number from the governing 1310.
type FuelPumpVolume struct {
	ProductCode  string     `json:"product_code"`
	Date         *time.Time `json:"date"`
	TankNumber   string     `json:"tank_number"`
	PumpNumber   string     `json:"pump_number"`
	OpeningMeter float64    `json:"opening_meter"`
	ClosingMeter float64    `json:"closing_meter"`
	Calibration  float64    `json:"calibration"`
	Sold         float64    `json:"sold"`
}

// Severity grades a fuel inconsistency finding.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "AVISO"
	SeverityCritical Severity = "CRITICO"
)

// InconsistencyType identifies which check produced a finding.
type InconsistencyType string

const (
	LossOverLimit           InconsistencyType = "LOSS_OVER_LIMIT"
	GainOverLimit           InconsistencyType = "GAIN_OVER_LIMIT"
	StockWithoutEntry       InconsistencyType = "STOCK_WITHOUT_ENTRY"
	TankSumMismatch         InconsistencyType = "TANK_SUM_MISMATCH"
	SalesCrossCheckMismatch InconsistencyType = "SALES_CROSS_CHECK_MISMATCH"
	OrphanRecord            InconsistencyType = "ORPHAN_RECORD"
)

// Inconsistency is one immutable fuel-audit finding. The full set for a
// ledger is replaced wholesale on every analysis run.
type Inconsistency struct {
	ID          string            `json:"id"`
	LedgerID    string            `json:"ledger_id"`
	Type        InconsistencyType `json:"type"`
	Severity    Severity          `json:"severity"`
	ProductCode string            `json:"product_code,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	TankNumber  string            `json:"tank_number,omitempty"`
	PumpNumber  string            `json:"pump_number,omitempty"`
	Expected    float64           `json:"expected"`
	Found       float64           `json:"found"`
	DiffAbs     float64           `json:"diff_abs"`
	DiffPerc    float64           `json:"diff_perc"`
	Description string            `json:"description"`
	Documents   []string          `json:"documents,omitempty"`
	DetectedAt  time.Time         `json:"detected_at"`
}
