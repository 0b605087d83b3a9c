package hearts

import (
	"fmt"
	"time"
)

// ErrInsufficientResource indicates a consume was requested with no units
// left. NextAvailableIn is how long until one unit regenerates, derived from
// the stored regeneration phase.
type ErrInsufficientResource struct {
	Resource        string
	NextAvailableIn time.Duration
}

func (e *ErrInsufficientResource) Error() string {
	return fmt.Sprintf("no %s left (next in %s)", e.Resource, e.NextAvailableIn.Round(time.Second))
}
