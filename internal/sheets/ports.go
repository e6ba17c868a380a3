package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter replaces a year's worth of transactions in an
	// external spreadsheet.
	TransactionExporter interface {
		// ExportTransactions writes the transactions dated in year and returns
		// how many rows were written, excluding the header.
		ExportTransactions(ctx context.Context, year int, txs []core.Transaction) (int, error)
	}
)
