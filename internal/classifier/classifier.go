package classifier

import (
	"math"
	"strings"

	"github.com/wnt/lptrack/internal/analyzer"
	"github.com/wnt/lptrack/internal/models"
)

// SignificantDelta is the ui-amount magnitude above which a balance change
// counts as a real transfer in the structural fallback.
const SignificantDelta = 0.01

// Log markers emitted by well-behaved versions of the liquidity program.
// These are precise when present; the keyword and structural fallbacks below
// exist because some program versions and third-party front-ends omit them.
var (
	openMarkers = []string{
		"Instruction: InitializePosition",
		"Instruction: InitializePositionPda",
		"Instruction: InitializePositionByOperator",
	}
	closeMarkers = []string{
		"Instruction: ClosePosition",
		"Instruction: RemoveLiquidity",
		"Instruction: RemoveAllLiquidity",
		"Instruction: RemoveLiquidityByRange",
	}
	claimMarkers = []string{
		"Instruction: ClaimFee",
		"Instruction: ClaimReward",
	}
)

// Pricer maps an asset mint to a USD unit price.
type Pricer interface {
	Resolve(mint string) float64
}

// Classifier assigns lifecycle-event kinds to raw transaction records. It is
// a pure function of the record; classifying the same record twice yields the
// same result.
type Classifier struct {
	pricer Pricer
}

// New creates a classifier that uses pricer for coarse USD estimates.
func New(pricer Pricer) *Classifier {
	return &Classifier{pricer: pricer}
}

// Classify derives the ClassifiedTransaction for one record. wallet is the
// address whose history is being replayed; it anchors the native-asset delta.
func (c *Classifier) Classify(tx *models.TransactionRecord, wallet string) models.ClassifiedTransaction {
	changes := analyzer.BalanceDeltas(tx)
	kind := classifyKind(tx, changes)

	classified := models.ClassifiedTransaction{
		Record:      tx,
		Kind:        kind,
		PositionID:  ExtractPositionID(tx, kind),
		PoolID:      extractPoolID(tx),
		NativeDelta: analyzer.NativeDelta(tx, wallet),
	}

	if len(changes) > 0 {
		classified.TokenX = &changes[0]
	}
	if len(changes) > 1 {
		classified.TokenY = &changes[1]
	}
	classified.EstimatedUSD = c.estimateUSD(classified.TokenX, classified.TokenY)

	return classified
}

// classifyKind applies the three heuristic tiers in strict priority order:
// explicit program markers, generic keywords, then balance-shape fallback.
func classifyKind(tx *models.TransactionRecord, changes []models.BalanceChange) models.EventKind {
	logs := strings.Join(tx.LogMessages, "\n")

	if containsAny(logs, openMarkers) {
		return models.EventPositionOpen
	}
	if containsAny(logs, closeMarkers) {
		return models.EventPositionClose
	}
	if containsAny(logs, claimMarkers) {
		return models.EventFeeClaim
	}

	lower := strings.ToLower(logs)
	candOpen := strings.Contains(lower, "add liquidity") || strings.Contains(lower, "deposit")
	candClose := strings.Contains(lower, "remove liquidity") || strings.Contains(lower, "withdraw")
	candClaim := strings.Contains(lower, "claim") || strings.Contains(lower, "fee")

	significant := 0
	for _, change := range changes {
		if math.Abs(change.Delta) > SignificantDelta {
			significant++
		}
	}

	switch {
	case candOpen && significant >= 2:
		return models.EventPositionOpen
	case candClose && len(tx.PostTokenBals) < len(tx.PreTokenBals):
		return models.EventPositionClose
	case candClaim && len(changes) >= 1:
		return models.EventFeeClaim
	case !candOpen && !candClose && significant >= 2:
		return models.EventRebalance
	}

	return models.EventUnknown
}

// estimateUSD produces a coarse value guess for history display. It is not a
// price feed and is never used by the valuation path.
func (c *Classifier) estimateUSD(legs ...*models.BalanceChange) float64 {
	total := 0.0
	for _, leg := range legs {
		if leg == nil {
			continue
		}
		total += math.Abs(leg.Delta) * c.pricer.Resolve(leg.Mint)
	}
	return total
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
