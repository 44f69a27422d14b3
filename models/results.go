package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FetchResult describes what the fetcher did with the target path.
type FetchResult struct {
	Path    string
	Skipped bool
	Bytes   int64
}

// ConvertResult is the terminal summary of the batch converter.
type ConvertResult struct {
	OutputPath string
	Lines      int
	Processed  int
	Skipped    int
	Batches    int
}

// TransformResult counts the rows each cleaning step touched.
type TransformResult struct {
	Loaded          int
	Duplicates      int
	NullRows        int
	PropertyTypes   int
	IDsReformatted  int
	QuotesRemoved   int
	AddressesBuilt  int
	EmptyAddresses  int
	Output          int
	CleanedFilePath string
}

// LoadResult counts loader outcomes. Attempted == Inserted + Conflicts + Failed.
type LoadResult struct {
	Attempted int
	Inserted  int
	Conflicts int
	Failed    int
}

// CountyTypeSummary is one row of the county / property type aggregate report.
type CountyTypeSummary struct {
	County           string          `db:"county" csv:"county"`
	PropertyType     string          `db:"property_type" csv:"property_type"`
	TransactionCount int64           `db:"transaction_count" csv:"transaction_count"`
	AvgPrice         decimal.Decimal `db:"avg_price" csv:"avg_price"`
}

// HighValueTransaction is one row of the transactions-above-1-million report.
type HighValueTransaction struct {
	TransactionID string          `db:"transaction_unique_id" csv:"transaction_unique_id"`
	Price         decimal.Decimal `db:"price" csv:"price"`
	TransferDate  time.Time       `db:"date_of_transfer" csv:"date_of_transfer"`
	TownCity      string          `db:"town_city" csv:"town_city"`
	County        string          `db:"county" csv:"county"`
	Postcode      string          `db:"postcode" csv:"postcode"`
}

// ReportResult lists the report files written and their row counts.
type ReportResult struct {
	CountyTypePath string
	CountyTypeRows int
	HighValuePath  string
	HighValueRows  int

	TopCountyTypes []CountyTypeSummary
	TopHighValue   []HighValueTransaction
}
