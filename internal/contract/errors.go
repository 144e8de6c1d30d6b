// File: internal/contract/errors.go
package contract

import (
	"errors"
	"fmt"
)

// Kind names one failure class in the action-contract taxonomy. The string
// values double as error-tally keys in the run journal.
type Kind string

const (
	KindMalformedResponse     Kind = "MalformedResponse"
	KindMissingField          Kind = "MissingField"
	KindInvalidArgsType       Kind = "InvalidArgsType"
	KindLegacyActionRejected  Kind = "LegacyActionRejected"
	KindInconsistentDoneState Kind = "InconsistentDoneState"
	KindUnknownAction         Kind = "UnknownAction"
	KindFeatureDisabled       Kind = "FeatureDisabled"
	KindMissingCoordinates    Kind = "MissingCoordinates"
)

// ContractError is the typed validation failure returned by Parse. Every kind
// is recoverable: the orchestrator degrades it to a logged no-op step.
type ContractError struct {
	Kind   Kind
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// errOf builds a ContractError with a formatted detail message.
func errOf(kind Kind, format string, args ...any) *ContractError {
	return &ContractError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, unwrapping as needed. The
// second return is false when err is not a ContractError.
func KindOf(err error) (Kind, bool) {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
