package pipeline

import (
	"errors"
	"fmt"

	"github.com/phobologic/callrank/internal/discover"
	"github.com/phobologic/callrank/internal/transmit"
)

// DecodeWarning records a file that was skipped or decoded lossily.
type DecodeWarning = discover.DecodeWarning

// ScorerUnavailable records that the complexity scorer produced no data for
// the whole run. Every function then uses the default complexity.
type ScorerUnavailable struct {
	Scorer   string
	Failures int
	Err      error // last scorer error, if any
}

func (e *ScorerUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("complexity scorer %s unavailable after %d failures: %v", e.Scorer, e.Failures, e.Err)
	}
	return fmt.Sprintf("complexity scorer %s returned no data", e.Scorer)
}

func (e *ScorerUnavailable) Unwrap() error { return e.Err }

// ScanError reports that the walk over the source tree stopped early,
// usually because the context was cancelled.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Kind classifies run-level errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindAcquisition
	KindScan
	KindTransmission
)

func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "acquisition"
	case KindScan:
		return "scan"
	case KindTransmission:
		return "transmission"
	}
	return "unknown"
}

// KindOf reports which stage err came from.
func KindOf(err error) Kind {
	var acq *discover.AcquisitionError
	var scan *ScanError
	var tx *transmit.TransmissionError
	var dw DecodeWarning
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &acq):
		return KindAcquisition
	case errors.As(err, &tx):
		return KindTransmission
	case errors.As(err, &scan), errors.As(err, &dw):
		return KindScan
	}
	return KindUnknown
}
