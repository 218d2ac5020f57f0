// Package fuel audits the fuel movement hierarchy of a parsed ledger
// against regulatory loss tolerances and internal consistency rules.
package fuel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/auditware/fiscal-cli/internal/model"
)

// LegalLossTolerance is the regulatory loss/gain allowance: 0.6% of the
// day's available quantity.
const LegalLossTolerance = 0.006

// Config tunes the analyzer thresholds.
type Config struct {
	// LossTolerance is the legal loss/gain ratio; zero value means
	// LegalLossTolerance.
	LossTolerance float64

	// QuantityTolerance is the absolute liters band for tank-sum and
	// sales cross-check comparisons.
	QuantityTolerance float64

	// CrossCheckPercTolerance is the minimum percent divergence for a
	// sales cross-check finding.
	CrossCheckPercTolerance float64

	// SaleCFOPs are the fiscal codes of fuel sale operations used by the
	// sales cross-check.
	SaleCFOPs map[string]bool
}

func (c *Config) defaults() {
	if c.LossTolerance <= 0 {
		c.LossTolerance = LegalLossTolerance
	}
	if c.QuantityTolerance <= 0 {
		c.QuantityTolerance = 0.5
	}
	if c.CrossCheckPercTolerance <= 0 {
		c.CrossCheckPercTolerance = 0.5
	}
	if c.SaleCFOPs == nil {
		c.SaleCFOPs = map[string]bool{"5656": true, "5667": true}
	}
}

type analyzer struct {
	cfg      Config
	ledger   *model.Ledger
	now      time.Time
	findings []model.Inconsistency
}

// Analyze runs every check over the ledger's fuel records and returns the
// full set of findings. It never fails; absent data for a check simply
// yields no finding.
func Analyze(ledger *model.Ledger, cfg Config) []model.Inconsistency {
	cfg.defaults()
	a := &analyzer{cfg: cfg, ledger: ledger, now: time.Now().UTC()}

	a.checkLossGain()
	a.checkStockContinuity()
	a.checkTankSums()
	a.checkSalesCrossCheck()
	a.checkOrphans()

	return a.findings
}

func (a *analyzer) add(inc model.Inconsistency) {
	inc.ID = uuid.NewString()
	inc.LedgerID = a.ledger.ID
	inc.DetectedAt = a.now
	a.findings = append(a.findings, inc)
}

// checkLossGain flags daily movements whose loss or gain exceeds the legal
// tolerance of the available quantity. At or past twice the tolerance the
// finding is critical.
func (a *analyzer) checkLossGain() {
	for i := range a.ledger.FuelDaily {
		mov := &a.ledger.FuelDaily[i]
		if mov.Available <= 0 {
			continue
		}
		a.gradeMovement(mov, model.LossOverLimit, mov.Loss, "perda")
		a.gradeMovement(mov, model.GainOverLimit, mov.Gain, "ganho")
	}
}

func (a *analyzer) gradeMovement(mov *model.FuelDailyMovement, typ model.InconsistencyType, qty float64, label string) {
	ratio := math.Abs(qty) / mov.Available
	if ratio < a.cfg.LossTolerance {
		return
	}
	sev := model.SeverityWarning
	if ratio >= 2*a.cfg.LossTolerance {
		sev = model.SeverityCritical
	}
	allowed := mov.Available * a.cfg.LossTolerance
	a.add(model.Inconsistency{
		Type:        typ,
		Severity:    sev,
		ProductCode: mov.ProductCode,
		Date:        mov.Date,
		Expected:    allowed,
		Found:       math.Abs(qty),
		DiffAbs:     math.Abs(qty) - allowed,
		DiffPerc:    ratio * 100,
		Description: fmt.Sprintf("%s de %.3f L excede a tolerância legal de %.2f%% do volume disponível (%.3f L)",
			label, math.Abs(qty), a.cfg.LossTolerance*100, mov.Available),
	})
}

// checkStockContinuity flags days whose opening stock exceeds the previous
// day's book closing without a matching recorded inflow.
func (a *analyzer) checkStockContinuity() {
	byProduct := make(map[string][]*model.FuelDailyMovement)
	for i := range a.ledger.FuelDaily {
		mov := &a.ledger.FuelDaily[i]
		if mov.Date == nil {
			continue
		}
		byProduct[mov.ProductCode] = append(byProduct[mov.ProductCode], mov)
	}

	products := make([]string, 0, len(byProduct))
	for code := range byProduct {
		products = append(products, code)
	}
	sort.Strings(products)

	for _, code := range products {
		movs := byProduct[code]
		sort.Slice(movs, func(i, j int) bool { return movs[i].Date.Before(*movs[j].Date) })

		for i := 1; i < len(movs); i++ {
			prev, cur := movs[i-1], movs[i]
			increase := cur.Opening - prev.BookClosing
			if increase <= a.cfg.QuantityTolerance {
				continue
			}
			if cur.Incoming >= increase-a.cfg.QuantityTolerance {
				continue
			}
			a.add(model.Inconsistency{
				Type:        model.StockWithoutEntry,
				Severity:    model.SeverityCritical,
				ProductCode: code,
				Date:        cur.Date,
				Expected:    prev.BookClosing,
				Found:       cur.Opening,
				DiffAbs:     increase,
				DiffPerc:    percOf(increase, prev.BookClosing),
				Description: fmt.Sprintf("estoque de abertura %.3f L excede o fechamento anterior %.3f L sem entrada correspondente (entradas: %.3f L)",
					cur.Opening, prev.BookClosing, cur.Incoming),
			})
		}
	}
}

// checkTankSums compares the sold quantity summed across a day's tanks to
// the top-level daily movement. Only days declaring more than one tank are
// checked: a lone tank record is a per-tank breakdown only when siblings
// exist, so a mismatch there signals nothing.
func (a *analyzer) checkTankSums() {
	type pd struct {
		product string
		date    string
	}
	tankSum := make(map[pd]float64)
	tankCount := make(map[pd]int)
	for i := range a.ledger.FuelTanks {
		t := &a.ledger.FuelTanks[i]
		if t.Date == nil {
			continue
		}
		k := pd{product: t.ProductCode, date: dayKey(*t.Date)}
		tankSum[k] += t.Sold
		tankCount[k]++
	}

	for i := range a.ledger.FuelDaily {
		mov := &a.ledger.FuelDaily[i]
		if mov.Date == nil {
			continue
		}
		k := pd{product: mov.ProductCode, date: dayKey(*mov.Date)}
		if tankCount[k] < 2 {
			continue
		}
		sum := tankSum[k]
		diff := math.Abs(sum - mov.Sold)
		if diff <= a.cfg.QuantityTolerance {
			continue
		}
		a.add(model.Inconsistency{
			Type:        model.TankSumMismatch,
			Severity:    model.SeverityWarning,
			ProductCode: mov.ProductCode,
			Date:        mov.Date,
			Expected:    mov.Sold,
			Found:       sum,
			DiffAbs:     diff,
			DiffPerc:    percOf(diff, mov.Sold),
			Description: fmt.Sprintf("soma das vendas por tanque (%.3f L em %d tanques) difere do movimento diário (%.3f L)",
				sum, tankCount[k], mov.Sold),
		})
	}
}

// checkSalesCrossCheck compares the declared sold quantity against fiscal
// document item quantities for the configured fuel sale CFOPs.
func (a *analyzer) checkSalesCrossCheck() {
	type pd struct {
		product string
		date    string
	}
	docQty := make(map[pd]float64)
	docRefs := make(map[pd][]string)

	for i := range a.ledger.Outbound {
		doc := &a.ledger.Outbound[i]
		if !doc.Counted() || doc.DocumentDate == nil {
			continue
		}
		day := dayKey(*doc.DocumentDate)
		for _, det := range doc.Details {
			if !a.cfg.SaleCFOPs[det.CFOP] {
				continue
			}
			k := pd{product: det.ProductCode, date: day}
			docQty[k] += det.Quantity
			refs := docRefs[k]
			if len(refs) == 0 || refs[len(refs)-1] != doc.Identity() {
				docRefs[k] = append(refs, doc.Identity())
			}
		}
	}

	for i := range a.ledger.FuelDaily {
		mov := &a.ledger.FuelDaily[i]
		if mov.Date == nil {
			continue
		}
		k := pd{product: mov.ProductCode, date: dayKey(*mov.Date)}
		qty, ok := docQty[k]
		if !ok {
			// No fiscal sales found for this product/date: nothing to
			// cross-check against.
			continue
		}
		diff := math.Abs(qty - mov.Sold)
		perc := percOf(diff, mov.Sold)
		if diff <= a.cfg.QuantityTolerance || perc <= a.cfg.CrossCheckPercTolerance {
			continue
		}
		a.add(model.Inconsistency{
			Type:        model.SalesCrossCheckMismatch,
			Severity:    model.SeverityWarning,
			ProductCode: mov.ProductCode,
			Date:        mov.Date,
			Expected:    mov.Sold,
			Found:       qty,
			DiffAbs:     diff,
			DiffPerc:    perc,
			Documents:   docRefs[k],
			Description: fmt.Sprintf("vendas declaradas no movimento (%.3f L) divergem das quantidades dos documentos fiscais (%.3f L)",
				mov.Sold, qty),
		})
	}
}

// checkOrphans surfaces parser-level data-quality observations: fuel
// records that arrived with no governing context and were skipped.
func (a *analyzer) checkOrphans() {
	if n := a.ledger.Stats.OrphanFuelTanks; n > 0 {
		a.add(model.Inconsistency{
			Type:        model.OrphanRecord,
			Severity:    model.SeverityInfo,
			Found:       float64(n),
			Description: fmt.Sprintf("%d registros de tanque (1310) sem movimento diário (1300) no escopo foram ignorados", n),
		})
	}
	if n := a.ledger.Stats.OrphanFuelPumps; n > 0 {
		a.add(model.Inconsistency{
			Type:        model.OrphanRecord,
			Severity:    model.SeverityInfo,
			Found:       float64(n),
			Description: fmt.Sprintf("%d registros de bico (1320) sem tanque (1310) no escopo foram ignorados", n),
		})
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func percOf(diff, base float64) float64 {
	if base == 0 {
		return 0
	}
	return diff / base * 100
}
