package extraction

import (
	"errors"
	"fmt"
)

// ErrMappingResolutionEmpty reports that no template or mappings applied to a
// document. Not fatal: extraction proceeds with zero auto-population and the
// caller reports it explicitly.
var ErrMappingResolutionEmpty = errors.New("no applicable extraction template or mappings")

// ErrPopulateInProgress reports a concurrent populate run for the same
// document; the second run is rejected rather than doubled up.
var ErrPopulateInProgress = errors.New("populate already running for this document")

// TransformationError is a per-mapping failure: bad path, coercion failure,
// or a missing required field. It is isolated to its mapping and aggregated
// into the run's population_errors.
type TransformationError struct {
	Mapping string
	Reason  string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("mapping %s: %s", e.Mapping, e.Reason)
}

// StoreUnavailableError is a connectivity failure to a clinical, document, or
// audit store. Fatal for the whole populate call.
type StoreUnavailableError struct {
	Store string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store %s unavailable: %v", e.Store, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
