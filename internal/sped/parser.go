package sped

import (
	"bufio"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/model"
)

// ProgressFunc receives parse progress. The final invocation always reports
// current == total, regardless of stride.
type ProgressFunc func(current, total int)

// Options configures a parse pass.
type Options struct {
	Progress ProgressFunc
	Stride   int // lines between progress callbacks; default 500
}

// Result is a fully parsed ledger plus its aggregate projection.
type Result struct {
	Ledger     model.Ledger
	Aggregates aggregate.Projection
}

// parser holds the single-pass state: the current document context for
// C170/C190 lines and the two-level fuel context for 1310/1320 lines.
type parser struct {
	ledger model.Ledger
	acc    *aggregate.Accumulator

	inbound  []*model.Document
	outbound []*model.Document

	curDoc *model.Document

	// Fuel hierarchy context. curFuelProduct/curFuelDate are set by 1300,
	// curTank by 1310 and reset on every new 1300.
	curFuelProduct string
	curFuelDate    *time.Time
	hasFuelCtx     bool
	curTank        string
	hasTank        bool

	products  map[string]model.FuelProduct
	prodOrder []string

	periodMin *time.Time
	periodMax *time.Time
}

// Parse runs a single stateful pass over the ledger file text. It never
// fails: malformed lines and unknown record types are tallied and skipped.
func Parse(text string, opts Options) *Result {
	stride := opts.Stride
	if stride <= 0 {
		stride = 500
	}

	p := &parser{
		acc:      aggregate.NewAccumulator(),
		products: make(map[string]model.FuelProduct),
	}
	p.ledger.ID = uuid.NewString()
	p.ledger.CreatedAt = time.Now().UTC()

	total := countLines(text)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		p.ledger.Stats.Lines++

		rec, ok := Tokenize(sc.Text())
		if !ok {
			if strings.TrimSpace(sc.Text()) != "" {
				p.ledger.Stats.MalformedLines++
			}
			continue
		}
		p.ledger.Stats.Records++
		p.dispatch(rec)

		if opts.Progress != nil && line%stride == 0 && line < total {
			opts.Progress(line, total)
		}
	}
	if opts.Progress != nil {
		opts.Progress(total, total)
	}

	p.finalize()

	return &Result{Ledger: p.ledger, Aggregates: p.acc.Project()}
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func (p *parser) dispatch(rec Record) {
	switch rec.Type() {
	case "0000":
		p.parseHeader(rec)
	case "0200":
		p.parseProduct(rec)
	case "C100":
		p.parseDocument(rec)
	case "C170":
		p.parseItemDetail(rec)
	case "C190":
		p.parseItem(rec)
	case "1300":
		p.parseFuelDaily(rec)
	case "1310":
		p.parseFuelTank(rec)
	case "1320":
		p.parseFuelPump(rec)
	default:
		p.ledger.Stats.UnknownRecords++
	}
}

func (p *parser) parseHeader(rec Record) {
	p.ledger.DeclaredStart = parseDateBR(rec.Field(3))
	p.ledger.DeclaredEnd = parseDateBR(rec.Field(4))
	p.ledger.CompanyName = rec.Field(5)
	p.ledger.CNPJ = rec.Field(6)
}

func (p *parser) parseProduct(rec Record) {
	code := rec.Field(1)
	if code == "" {
		p.ledger.Stats.MalformedLines++
		return
	}
	if _, seen := p.products[code]; !seen {
		p.prodOrder = append(p.prodOrder, code)
	}
	// Last write wins on repeated codes.
	p.products[code] = model.FuelProduct{
		Code:        code,
		Description: rec.Field(2),
		Unit:        rec.Field(5),
		Type:        rec.Field(6),
	}
}

func (p *parser) parseDocument(rec Record) {
	var dir model.Direction
	switch rec.Field(1) {
	case "0":
		dir = model.DirectionInbound
	case "1":
		dir = model.DirectionOutbound
	default:
		// Not a usable document header; drop the context so stray
		// C190 lines do not attach to the previous document.
		p.curDoc = nil
		p.ledger.Stats.MalformedLines++
		return
	}

	doc := &model.Document{
		ID:               uuid.NewString(),
		LedgerID:         p.ledger.ID,
		Direction:        dir,
		Status:           rec.Field(5),
		Series:           rec.Field(6),
		Number:           rec.Field(7),
		AccessKey:        rec.Field(8),
		DocumentDate:     parseDateBR(rec.Field(9)),
		EntryExitDate:    parseDateBR(rec.Field(10)),
		TotalValue:       parseDecimalBR(rec.Field(11)),
		MerchandiseValue: parseDecimalBR(rec.Field(15)),
	}
	if doc.DocumentDate == nil && rec.Field(9) != "" {
		p.ledger.Stats.InvalidDates++
	}

	if doc.DocumentDate != nil && doc.Counted() {
		p.trackPeriod(*doc.DocumentDate)
	}

	switch dir {
	case model.DirectionInbound:
		p.inbound = append(p.inbound, doc)
	case model.DirectionOutbound:
		p.outbound = append(p.outbound, doc)
	}
	p.curDoc = doc
}

func (p *parser) trackPeriod(d time.Time) {
	if p.periodMin == nil || d.Before(*p.periodMin) {
		t := d
		p.periodMin = &t
	}
	if p.periodMax == nil || d.After(*p.periodMax) {
		t := d
		p.periodMax = &t
	}
}

func (p *parser) parseItem(rec Record) {
	if p.curDoc == nil {
		p.ledger.Stats.DroppedItems++
		return
	}
	item := model.Item{
		CST:            rec.Field(1),
		CFOP:           rec.Field(2),
		Rate:           parseDecimalBR(rec.Field(3)),
		OperationValue: parseDecimalBR(rec.Field(4)),
		TaxBase:        parseDecimalBR(rec.Field(5)),
		TaxValue:       parseDecimalBR(rec.Field(6)),
	}
	p.curDoc.Items = append(p.curDoc.Items, item)

	if p.curDoc.Counted() {
		p.acc.Add(p.curDoc.Direction, p.curDoc.DocumentDate, item.CFOP, item.OperationValue)
	}
}

func (p *parser) parseItemDetail(rec Record) {
	if p.curDoc == nil {
		p.ledger.Stats.DroppedDetails++
		return
	}
	p.curDoc.Details = append(p.curDoc.Details, model.ItemDetail{
		ItemNumber:  parseIntOr(rec.Field(1), 0),
		ProductCode: rec.Field(2),
		Description: rec.Field(3),
		Quantity:    parseFloatBR(rec.Field(4)),
		Unit:        rec.Field(5),
		Value:       parseDecimalBR(rec.Field(6)),
		Discount:    parseDecimalBR(rec.Field(7)),
		CST:         rec.Field(9),
		CFOP:        rec.Field(10),
		TaxBase:     parseDecimalBR(rec.Field(12)),
		Rate:        parseDecimalBR(rec.Field(13)),
		TaxValue:    parseDecimalBR(rec.Field(14)),
		IPIValue:    parseDecimalBR(rec.Field(23)),
		PISValue:    parseDecimalBR(rec.Field(29)),
		COFINSValue: parseDecimalBR(rec.Field(35)),
	})
}

func (p *parser) parseFuelDaily(rec Record) {
	mov := model.FuelDailyMovement{
		ProductCode:     rec.Field(1),
		Date:            parseDateBR(rec.Field(2)),
		Opening:         parseFloatBR(rec.Field(3)),
		Incoming:        parseFloatBR(rec.Field(4)),
		Available:       parseFloatBR(rec.Field(5)),
		Sold:            parseFloatBR(rec.Field(6)),
		BookClosing:     parseFloatBR(rec.Field(7)),
		Loss:            parseFloatBR(rec.Field(8)),
		Gain:            parseFloatBR(rec.Field(9)),
		PhysicalClosing: parseFloatBR(rec.Field(10)),
	}
	p.ledger.FuelDaily = append(p.ledger.FuelDaily, mov)

	// A new daily movement opens a fresh product/date scope and clears any
	// tank scope from the previous product.
	p.curFuelProduct = mov.ProductCode
	p.curFuelDate = mov.Date
	p.hasFuelCtx = true
	p.hasTank = false
	p.curTank = ""
}

func (p *parser) parseFuelTank(rec Record) {
	if !p.hasFuelCtx {
		// No governing 1300: skip and count rather than attach to a stale
		// or missing context.
		p.ledger.Stats.OrphanFuelTanks++
		zap.L().Debug("sped: tank record without daily movement context")
		return
	}
	mov := model.FuelTankMovement{
		ProductCode:     p.curFuelProduct,
		Date:            p.curFuelDate,
		TankNumber:      rec.Field(1),
		Opening:         parseFloatBR(rec.Field(2)),
		Incoming:        parseFloatBR(rec.Field(3)),
		Available:       parseFloatBR(rec.Field(4)),
		Sold:            parseFloatBR(rec.Field(5)),
		BookClosing:     parseFloatBR(rec.Field(6)),
		Loss:            parseFloatBR(rec.Field(7)),
		Gain:            parseFloatBR(rec.Field(8)),
		PhysicalClosing: parseFloatBR(rec.Field(9)),
	}
	p.ledger.FuelTanks = append(p.ledger.FuelTanks, mov)
	p.curTank = mov.TankNumber
	p.hasTank = true
}

func (p *parser) parseFuelPump(rec Record) {
	if !p.hasFuelCtx || !p.hasTank {
		p.ledger.Stats.OrphanFuelPumps++
		zap.L().Debug("sped: pump record without tank context")
		return
	}
	p.ledger.FuelPumps = append(p.ledger.FuelPumps, model.FuelPumpVolume{
		ProductCode:  p.curFuelProduct,
		Date:         p.curFuelDate,
		TankNumber:   p.curTank,
		PumpNumber:   rec.Field(1),
		ClosingMeter: parseFloatBR(rec.Field(7)),
		OpeningMeter: parseFloatBR(rec.Field(8)),
		Calibration:  parseFloatBR(rec.Field(9)),
		Sold:         parseFloatBR(rec.Field(10)),
	})
}

func (p *parser) finalize() {
	p.ledger.PeriodStart = p.periodMin
	p.ledger.PeriodEnd = p.periodMax

	p.ledger.Inbound = make([]model.Document, 0, len(p.inbound))
	for _, d := range p.inbound {
		p.ledger.Inbound = append(p.ledger.Inbound, *d)
	}
	p.ledger.Outbound = make([]model.Document, 0, len(p.outbound))
	for _, d := range p.outbound {
		p.ledger.Outbound = append(p.ledger.Outbound, *d)
	}

	// Catalog in first-seen order keeps output deterministic.
	p.ledger.Products = make([]model.FuelProduct, 0, len(p.products))
	for _, code := range p.prodOrder {
		p.ledger.Products = append(p.ledger.Products, p.products[code])
	}
}
