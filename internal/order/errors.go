package order

import "fmt"

// BuildErrorKind names why a request could not be built.
type BuildErrorKind string

const (
	MissingEntryPrice      BuildErrorKind = "MISSING_ENTRY_PRICE"
	BelowMinOrderValue     BuildErrorKind = "BELOW_MIN_ORDER_VALUE"
	BelowMinOrderQty       BuildErrorKind = "BELOW_MIN_ORDER_QTY"
	AboveMaxOrderQty       BuildErrorKind = "ABOVE_MAX_ORDER_QTY"
	StagedExitWithoutTP    BuildErrorKind = "STAGED_EXIT_WITHOUT_TP"
	StagedLevelTooSmall    BuildErrorKind = "STAGED_LEVEL_TOO_SMALL"
	StagedExitLimitEntry   BuildErrorKind = "STAGED_EXIT_LIMIT_ENTRY"
	InvalidProtectionLevel BuildErrorKind = "INVALID_PROTECTION_LEVEL"
)

// BuildError is returned wrapped in a VALIDATION BotError; use errors.As to inspect the kind.
type BuildError struct {
	Kind    BuildErrorKind
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
