package aggregator

import (
	"fmt"
	"strings"

	"github.com/Aidin1998/tradewatch/internal/model"
)

// MissingServicesError reports expected detectors absent from the outcome
// map. It is checked before incomplete outcomes.
type MissingServicesError struct {
	Names []string
}

func (e *MissingServicesError) Error() string {
	return fmt.Sprintf("missing services: %s", strings.Join(e.Names, ", "))
}

// IncompleteServicesError reports detectors whose outcome has not reached
// a terminal state.
type IncompleteServicesError struct {
	Names []string
}

func (e *IncompleteServicesError) Error() string {
	return fmt.Sprintf("incomplete services: %s", strings.Join(e.Names, ", "))
}

// ValidateCompletion confirms every expected detector has reached a
// terminal state. An exhausted outcome with FinalStatus true is a
// completed state and passes; a missing detector or one with FinalStatus
// false fails, missing reported first.
func ValidateCompletion(outcomes map[string]model.ServiceOutcome, expected []string) error {
	var missing []string
	for _, name := range expected {
		if _, ok := outcomes[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingServicesError{Names: missing}
	}

	var incomplete []string
	for _, name := range expected {
		if !outcomes[name].FinalStatus {
			incomplete = append(incomplete, name)
		}
	}
	if len(incomplete) > 0 {
		return &IncompleteServicesError{Names: incomplete}
	}
	return nil
}
