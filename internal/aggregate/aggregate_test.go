package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditware/fiscal-cli/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestAccumulator_DayOrderingAscending(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.DirectionOutbound, dayPtr(20), "5102", dec(10))
	acc.Add(model.DirectionOutbound, dayPtr(5), "5102", dec(20))
	acc.Add(model.DirectionOutbound, dayPtr(12), "5102", dec(30))

	p := acc.Project()
	require.Len(t, p.Days, 3)
	assert.Equal(t, day(5), p.Days[0].Date)
	assert.Equal(t, day(12), p.Days[1].Date)
	assert.Equal(t, day(20), p.Days[2].Date)
}

func TestAccumulator_CodeOrderingByValueDescending(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.DirectionOutbound, dayPtr(1), "5102", dec(100))
	acc.Add(model.DirectionOutbound, dayPtr(1), "5405", dec(900))
	acc.Add(model.DirectionOutbound, dayPtr(2), "5102", dec(50))
	acc.Add(model.DirectionOutbound, dayPtr(1), "5656", dec(400))

	p := acc.Project()
	require.Len(t, p.Codes, 3)
	assert.Equal(t, "5405", p.Codes[0].CFOP)
	assert.Equal(t, "5656", p.Codes[1].CFOP)
	assert.Equal(t, "5102", p.Codes[2].CFOP)
	assert.True(t, dec(150).Equal(p.Codes[2].Value))
	assert.Equal(t, 2, p.Codes[2].Items)
}

func TestAccumulator_DayCodeOrderingLexicographic(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.DirectionOutbound, dayPtr(2), "5102", dec(1))
	acc.Add(model.DirectionOutbound, dayPtr(1), "5656", dec(1))
	acc.Add(model.DirectionOutbound, dayPtr(1), "5102", dec(1))

	p := acc.Project()
	require.Len(t, p.DayCodes, 3)
	assert.Equal(t, day(1), p.DayCodes[0].Date)
	assert.Equal(t, "5102", p.DayCodes[0].CFOP)
	assert.Equal(t, day(1), p.DayCodes[1].Date)
	assert.Equal(t, "5656", p.DayCodes[1].CFOP)
	assert.Equal(t, day(2), p.DayCodes[2].Date)
}

func TestAccumulator_NilDateContributesToCodeOnly(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.DirectionInbound, nil, "1102", dec(75))

	p := acc.Project()
	assert.Empty(t, p.Days)
	assert.Empty(t, p.DayCodes)
	require.Len(t, p.Codes, 1)
	assert.True(t, dec(75).Equal(p.Codes[0].Value))
}

func TestAccumulator_DirectionPartitioning(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(model.DirectionInbound, dayPtr(1), "1102", dec(10))
	acc.Add(model.DirectionOutbound, dayPtr(1), "5102", dec(10))

	p := acc.Project()
	require.Len(t, p.Days, 2)
	assert.NotEqual(t, p.Days[0].Direction, p.Days[1].Direction)
}

func counted(dir model.Direction, d *time.Time, status string, total float64, items ...model.Item) model.Document {
	return model.Document{
		ID:           "doc",
		Direction:    dir,
		Status:       status,
		DocumentDate: d,
		TotalValue:   dec(total),
		Items:        items,
	}
}

func TestRebuild_MatchesDirectAccumulation(t *testing.T) {
	docs := []model.Document{
		counted(model.DirectionOutbound, dayPtr(3), model.StatusNormal, 300,
			model.Item{CFOP: "5102", OperationValue: dec(200)},
			model.Item{CFOP: "5656", OperationValue: dec(100)},
		),
		counted(model.DirectionInbound, dayPtr(1), model.StatusNormal, 50,
			model.Item{CFOP: "1102", OperationValue: dec(50)},
		),
		// Cancelled: must not contribute.
		counted(model.DirectionOutbound, dayPtr(4), "02", 999,
			model.Item{CFOP: "5102", OperationValue: dec(999)},
		),
		// Zero value: must not contribute.
		counted(model.DirectionOutbound, dayPtr(4), model.StatusNormal, 0,
			model.Item{CFOP: "5102", OperationValue: dec(123)},
		),
	}

	direct := NewAccumulator()
	direct.Add(model.DirectionOutbound, dayPtr(3), "5102", dec(200))
	direct.Add(model.DirectionOutbound, dayPtr(3), "5656", dec(100))
	direct.Add(model.DirectionInbound, dayPtr(1), "1102", dec(50))

	assert.Equal(t, direct.Project(), Rebuild(docs))
}

func TestRebuild_Deterministic(t *testing.T) {
	docs := []model.Document{
		counted(model.DirectionOutbound, dayPtr(3), model.StatusNormal, 300,
			model.Item{CFOP: "5102", OperationValue: dec(200)},
		),
	}
	assert.Equal(t, Rebuild(docs), Rebuild(docs))
}
