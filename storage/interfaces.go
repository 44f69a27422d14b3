package storage

import (
	"context"

	"price-paid-etl/models"
)

// TransactionWriter is the interface any relational backend must satisfy.
type TransactionWriter interface {
	Write(ctx context.Context, txs []*models.Transaction) (*models.LoadResult, error)
	Close() error
}

// BatchAppender persists tabular batches as the converter produces them.
type BatchAppender interface {
	Append(batch *models.TabularBatch) error
	Path() string
}

// ReportSource runs the report queries.
type ReportSource interface {
	CountyTypeSummary(ctx context.Context) ([]models.CountyTypeSummary, error)
	HighValueTransactions(ctx context.Context, threshold int64) ([]models.HighValueTransaction, error)
}
