package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDocument_Counted(t *testing.T) {
	doc := Document{Status: StatusNormal, TotalValue: decimal.NewFromInt(100)}
	assert.True(t, doc.Counted())

	cancelled := Document{Status: "02", TotalValue: decimal.NewFromInt(100)}
	assert.False(t, cancelled.Counted())

	zero := Document{Status: StatusNormal}
	assert.False(t, zero.Counted())

	negative := Document{Status: StatusNormal, TotalValue: decimal.NewFromInt(-50)}
	assert.False(t, negative.Counted())
}

func TestDocument_Identity(t *testing.T) {
	doc := Document{ID: "synthetic", Number: "123", AccessKey: "key"}
	assert.Equal(t, "key", doc.Identity())

	doc.AccessKey = ""
	assert.Equal(t, "123", doc.Identity())

	doc.Number = ""
	assert.Equal(t, "synthetic", doc.Identity())
}

func TestLedger_Documents(t *testing.T) {
	l := Ledger{
		Inbound:  []Document{{Number: "1"}, {Number: "2"}},
		Outbound: []Document{{Number: "3"}},
	}

	docs := l.Documents()
	assert.Len(t, docs, 3)
	assert.Equal(t, "1", docs[0].Number)
	assert.Equal(t, "3", docs[2].Number)
}
