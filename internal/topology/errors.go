package topology

import "errors"

// Stage errors. ChainMergeSkipped and BudgetExceeded are recoverable and
// surface as diagnostics; the rest abort the build.
var (
	// ErrTopologyInconsistency is returned when the graph violates a
	// structural invariant (unsnapped endpoints, degree mismatch, orphan
	// composition).
	ErrTopologyInconsistency = errors.New("topology inconsistency")

	// ErrChainMergeSkipped marks a chain abandoned because its merged
	// geometry was discontinuous or did not span its end vertices, or its
	// composition could not be merged.
	ErrChainMergeSkipped = errors.New("chain merge skipped")

	// ErrBudgetExceeded marks a fix-point loop that hit its iteration
	// budget before converging.
	ErrBudgetExceeded = errors.New("iteration budget exceeded")
)
