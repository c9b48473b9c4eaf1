package ledger

import (
	"sort"

	"github.com/wnt/lptrack/internal/models"
)

// Entry holds the open/close counters for one position identifier. Both
// counters only ever grow as more transactions are folded in; whether the
// position is active is purely a function of their difference.
type Entry struct {
	OpenCount  int
	CloseCount int
}

// Active reports whether the position is believed still open.
func (e Entry) Active() bool { return e.OpenCount > e.CloseCount }

// Multiplicity is the net number of opens (never negative).
func (e Entry) Multiplicity() int {
	if n := e.OpenCount - e.CloseCount; n > 0 {
		return n
	}
	return 0
}

// Ledger folds classified transactions, grouped by position identifier, into
// the set of currently-open positions. Folding is order-independent. Opens
// without a recoverable identifier cannot be matched to a later close, so
// they are tracked apart and always count as active.
type Ledger struct {
	entries           map[string]*Entry
	unidentifiedOpens int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// Fold builds a ledger from scratch for one reconciliation pass.
func Fold(txs []models.ClassifiedTransaction) *Ledger {
	l := New()
	for i := range txs {
		l.Add(&txs[i])
	}
	return l
}

// Add folds one classified transaction into the counters. Kinds other than
// open and close do not affect activity.
func (l *Ledger) Add(tx *models.ClassifiedTransaction) {
	switch tx.Kind {
	case models.EventPositionOpen:
		if tx.PositionID == "" {
			l.unidentifiedOpens++
			return
		}
		l.entry(tx.PositionID).OpenCount++
	case models.EventPositionClose:
		if tx.PositionID == "" {
			return
		}
		l.entry(tx.PositionID).CloseCount++
	}
}

// Entry returns a copy of the counters for a position id.
func (l *Ledger) Entry(positionID string) Entry {
	if e, ok := l.entries[positionID]; ok {
		return *e
	}
	return Entry{}
}

// Entries returns a copy of every counter pair keyed by position id.
func (l *Ledger) Entries() map[string]Entry {
	entries := make(map[string]Entry, len(l.entries))
	for id, e := range l.entries {
		entries[id] = *e
	}
	return entries
}

// UnidentifiedOpens is the number of opens that carried no identifier.
func (l *Ledger) UnidentifiedOpens() int { return l.unidentifiedOpens }

// Active returns the positions with more opens than closes, sorted by id for
// deterministic output.
func (l *Ledger) Active() []models.ActivePosition {
	var active []models.ActivePosition
	for id, e := range l.entries {
		if e.Active() {
			active = append(active, models.ActivePosition{
				Position:     id,
				Multiplicity: e.Multiplicity(),
			})
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Position < active[j].Position
	})
	return active
}

func (l *Ledger) entry(positionID string) *Entry {
	e, ok := l.entries[positionID]
	if !ok {
		e = &Entry{}
		l.entries[positionID] = e
	}
	return e
}
