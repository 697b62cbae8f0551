package sheets

import (
	"context"

	"tanklog/internal/core"
)

// Ports for outbound adapters.
type (
	// FillupWriter appends a fillup row to the export target.
	FillupWriter interface {
		Append(ctx context.Context, f core.Fillup) (rowRef string, err error)
	}

	// FillupDeleter removes the exported row of a deleted fillup. Export
	// rows carry the fillup ID, so deletion is by ID.
	FillupDeleter interface {
		DeleteFillup(ctx context.Context, id int64) error
	}

	// FillupLister reads back every exported fillup row.
	FillupLister interface {
		ListFillups(ctx context.Context) ([]core.Fillup, error)
	}
)
