package sheets

import (
	"context"

	"pesso/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityWriter appends one activity entry to the export sheet and
	// returns a reference to the written row.
	ActivityWriter interface {
		Append(ctx context.Context, n core.Notification) (rowRef string, err error)
	}
)
