package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	TransactionAppender interface {
		// AppendTransaction writes t as a new row and returns its range.
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionRemover interface {
		// RemoveTransaction clears the row holding id; a missing row is not an error.
		RemoveTransaction(ctx context.Context, id int64) error
	}

	Mirror interface {
		TransactionAppender
		TransactionRemover
	}
)
