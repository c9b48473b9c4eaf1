package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wnt/lptrack/internal/models"
)

func classified(kind models.EventKind, positionID string) models.ClassifiedTransaction {
	return models.ClassifiedTransaction{Kind: kind, PositionID: positionID}
}

func TestFold_ActiveSet(t *testing.T) {
	txs := []models.ClassifiedTransaction{
		classified(models.EventPositionOpen, "pos-a"),
		classified(models.EventPositionOpen, "pos-a"),
		classified(models.EventPositionClose, "pos-a"),
		classified(models.EventPositionOpen, "pos-b"),
		classified(models.EventPositionClose, "pos-b"),
		classified(models.EventPositionOpen, "pos-c"),
		classified(models.EventFeeClaim, "pos-c"), // claims never touch counters
	}

	l := Fold(txs)

	active := l.Active()
	assert.Equal(t, []models.ActivePosition{
		{Position: "pos-a", Multiplicity: 1},
		{Position: "pos-c", Multiplicity: 1},
	}, active)

	assert.Equal(t, Entry{OpenCount: 2, CloseCount: 1}, l.Entry("pos-a"))
	assert.False(t, l.Entry("pos-b").Active())
}

func TestFold_OrderIndependent(t *testing.T) {
	forward := []models.ClassifiedTransaction{
		classified(models.EventPositionOpen, "p"),
		classified(models.EventPositionClose, "p"),
		classified(models.EventPositionOpen, "p"),
	}
	backward := []models.ClassifiedTransaction{
		forward[2], forward[1], forward[0],
	}

	assert.Equal(t, Fold(forward).Active(), Fold(backward).Active())
}

func TestFold_UnidentifiedOpens(t *testing.T) {
	txs := []models.ClassifiedTransaction{
		classified(models.EventPositionOpen, ""),
		classified(models.EventPositionOpen, ""),
		classified(models.EventPositionClose, ""), // no id, cannot net against anything
	}

	l := Fold(txs)
	assert.Equal(t, 2, l.UnidentifiedOpens())
	assert.Empty(t, l.Active())
}

func TestMultiplicity_Monotone(t *testing.T) {
	l := New()

	// Adding only opens never decreases multiplicity.
	prev := 0
	for i := 0; i < 5; i++ {
		tx := classified(models.EventPositionOpen, "p")
		l.Add(&tx)
		cur := l.Entry("p").Multiplicity()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}

	// Adding only closes never increases it, and it floors at zero.
	for i := 0; i < 7; i++ {
		tx := classified(models.EventPositionClose, "p")
		l.Add(&tx)
		cur := l.Entry("p").Multiplicity()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 0, l.Entry("p").Multiplicity())
	assert.Equal(t, Entry{OpenCount: 5, CloseCount: 7}, l.Entry("p"))
}

func TestReopenAfterClose_KeptAsCounters(t *testing.T) {
	// A close followed by a reopen of the same id stays visible in the
	// counters; callers interpret the multiplicity.
	txs := []models.ClassifiedTransaction{
		classified(models.EventPositionOpen, "p"),
		classified(models.EventPositionClose, "p"),
		classified(models.EventPositionOpen, "p"),
	}

	l := Fold(txs)
	assert.Equal(t, Entry{OpenCount: 2, CloseCount: 1}, l.Entry("p"))
	assert.Equal(t, 1, l.Entry("p").Multiplicity())
}
