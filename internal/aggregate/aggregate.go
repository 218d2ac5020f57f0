package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/auditware/fiscal-cli/internal/model"
)

type dayKey struct {
	dir  model.Direction
	date time.Time
}

type codeKey struct {
	dir  model.Direction
	cfop string
}

type dayCodeKey struct {
	dir  model.Direction
	date time.Time
	cfop string
}

// Accumulator builds the three aggregate maps during a parse or rebuild
// pass. It is owned by a single call; nothing here is shared across calls.
type Accumulator struct {
	days     map[dayKey]*model.DayAggregate
	codes    map[codeKey]*model.CodeAggregate
	dayCodes map[dayCodeKey]*model.DayCodeAggregate
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		days:     make(map[dayKey]*model.DayAggregate),
		codes:    make(map[codeKey]*model.CodeAggregate),
		dayCodes: make(map[dayCodeKey]*model.DayCodeAggregate),
	}
}

// Add accumulates one tax-summary value. date may be nil for documents
// whose date field failed to parse: those contribute to the per-CFOP
// aggregate only, since the day buckets have no key for them.
func (a *Accumulator) Add(dir model.Direction, date *time.Time, cfop string, value decimal.Decimal) {
	ck := codeKey{dir: dir, cfop: cfop}
	if agg, ok := a.codes[ck]; ok {
		agg.Value = agg.Value.Add(value)
		agg.Items++
	} else {
		a.codes[ck] = &model.CodeAggregate{Direction: dir, CFOP: cfop, Value: value, Items: 1}
	}

	if date == nil {
		return
	}
	day := date.UTC().Truncate(24 * time.Hour)

	dk := dayKey{dir: dir, date: day}
	if agg, ok := a.days[dk]; ok {
		agg.Value = agg.Value.Add(value)
		agg.Items++
	} else {
		a.days[dk] = &model.DayAggregate{Direction: dir, Date: day, Value: value, Items: 1}
	}

	dck := dayCodeKey{dir: dir, date: day, cfop: cfop}
	if agg, ok := a.dayCodes[dck]; ok {
		agg.Value = agg.Value.Add(value)
		agg.Items++
	} else {
		a.dayCodes[dck] = &model.DayCodeAggregate{Direction: dir, Date: day, CFOP: cfop, Value: value, Items: 1}
	}
}

// AddDocument accumulates every tax-summary item of a counted document.
// Documents that fail the status/value filter are ignored here; callers do
// not need to pre-filter.
func (a *Accumulator) AddDocument(doc *model.Document) {
	if !doc.Counted() {
		return
	}
	for _, it := range doc.Items {
		a.Add(doc.Direction, doc.DocumentDate, it.CFOP, it.OperationValue)
	}
}

// Projection holds the deterministic sorted array views of the aggregate
// maps. The orderings are a contract: day ascending by (date, direction),
// code descending by summed value, day+code ascending by (date, CFOP).
type Projection struct {
	Days     []model.DayAggregate     `json:"days"`
	Codes    []model.CodeAggregate    `json:"codes"`
	DayCodes []model.DayCodeAggregate `json:"day_codes"`
}

// Project materializes the sorted arrays. Map iteration order never leaks:
// every slice gets an explicit total-order sort with unambiguous
// tie-breakers.
func (a *Accumulator) Project() Projection {
	p := Projection{
		Days:     make([]model.DayAggregate, 0, len(a.days)),
		Codes:    make([]model.CodeAggregate, 0, len(a.codes)),
		DayCodes: make([]model.DayCodeAggregate, 0, len(a.dayCodes)),
	}
	for _, v := range a.days {
		p.Days = append(p.Days, *v)
	}
	for _, v := range a.codes {
		p.Codes = append(p.Codes, *v)
	}
	for _, v := range a.dayCodes {
		p.DayCodes = append(p.DayCodes, *v)
	}
	p.Sort()
	return p
}

// Sort restores the ordering contract in place. Stores call it after
// reading rows back in SQL order.
func (p *Projection) Sort() {
	sort.Slice(p.Days, func(i, j int) bool {
		if !p.Days[i].Date.Equal(p.Days[j].Date) {
			return p.Days[i].Date.Before(p.Days[j].Date)
		}
		return p.Days[i].Direction < p.Days[j].Direction
	})
	sort.Slice(p.Codes, func(i, j int) bool {
		if !p.Codes[i].Value.Equal(p.Codes[j].Value) {
			return p.Codes[i].Value.GreaterThan(p.Codes[j].Value)
		}
		if p.Codes[i].CFOP != p.Codes[j].CFOP {
			return p.Codes[i].CFOP < p.Codes[j].CFOP
		}
		return p.Codes[i].Direction < p.Codes[j].Direction
	})
	sort.Slice(p.DayCodes, func(i, j int) bool {
		if !p.DayCodes[i].Date.Equal(p.DayCodes[j].Date) {
			return p.DayCodes[i].Date.Before(p.DayCodes[j].Date)
		}
		if p.DayCodes[i].CFOP != p.DayCodes[j].CFOP {
			return p.DayCodes[i].CFOP < p.DayCodes[j].CFOP
		}
		return p.DayCodes[i].Direction < p.DayCodes[j].Direction
	})
}

// Rebuild recomputes the projection from previously parsed documents.
// Rebuilding from stored documents must equal the projection of a fresh
// parse of the same file; both paths funnel through the same Accumulator.
func Rebuild(docs []model.Document) Projection {
	acc := NewAccumulator()
	for i := range docs {
		acc.AddDocument(&docs[i])
	}
	return acc.Project()
}
