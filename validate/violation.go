package validate

import (
	"sort"
	"strings"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/contract"
)

// Violation kinds, ordered here from most to least severe. Check
// failures that have no dedicated kind are reported as
// "check_failed:<kind>".
const (
	KindWrongType       = "wrong_type"
	KindMissingField    = "missing_field"
	KindNullValue       = "null_value"
	KindMismatchedID    = "mismatched_id"
	KindOutOfRange      = "out_of_range"
	KindUnexpectedField = "unexpected_field"
	KindBadFormat       = "bad_format"

	checkFailedPrefix = "check_failed:"
)

// Violation is one reason a message failed validation. Violations are
// data, not errors: a message producing them is a handled case, and the
// full set is always reported.
type Violation struct {
	Field  string
	Kind   string
	Reason string
	Value  any
}

// KindForCheck maps a failed check to the violation kind it reports.
// Identity checks surface as mismatched_id and bound checks as
// out_of_range so reject consumers can treat those classes uniformly;
// pattern failures are format problems; the rest carry their check kind.
func KindForCheck(k contract.CheckKind) string {
	switch k {
	case contract.CheckEqualTo:
		return KindMismatchedID
	case contract.CheckInRange,
		contract.CheckGreaterThan,
		contract.CheckGreaterThanOrEqual,
		contract.CheckLessThan,
		contract.CheckLessThanOrEqual:
		return KindOutOfRange
	case contract.CheckStrMatches:
		return KindBadFormat
	default:
		return checkFailedPrefix + k.String()
	}
}

// severityRank orders violation kinds for reporting. Lower is more
// severe. out_of_range and the check_failed family share a rank.
func severityRank(kind string) int {
	switch kind {
	case KindWrongType:
		return 0
	case KindMissingField:
		return 1
	case KindNullValue:
		return 2
	case KindMismatchedID:
		return 3
	case KindOutOfRange:
		return 4
	case KindUnexpectedField:
		return 5
	case KindBadFormat:
		return 6
	}
	if strings.HasPrefix(kind, checkFailedPrefix) {
		return 4
	}
	return 7
}

// SortViolations orders violations most severe first. The sort is
// stable, so violations of equal severity keep discovery order (column
// declaration order, then check order).
func SortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		return severityRank(violations[i].Kind) < severityRank(violations[j].Kind)
	})
}
