package storage

import (
	"context"

	"price-paid-etl/models"
)

const countyTypeSummarySQL = `
	SELECT
		COALESCE(pt.county, '')     AS county,
		ptp.property_type_code      AS property_type,
		COUNT(pt.transaction_id)    AS transaction_count,
		ROUND(AVG(pt.price), 2)     AS avg_price
	FROM property_transactions pt
	JOIN property_types ptp ON pt.property_type_id = ptp.property_type_id
	GROUP BY COALESCE(pt.county, ''), ptp.property_type_code
	ORDER BY transaction_count DESC, county, property_type
`

const highValueTransactionsSQL = `
	SELECT
		transaction_unique_id,
		price,
		date_of_transfer,
		COALESCE(town_city, '') AS town_city,
		COALESCE(county, '')    AS county,
		postcode
	FROM property_transactions
	WHERE price > $1
	ORDER BY price DESC, transaction_unique_id
`

// CountyTypeSummary aggregates transaction count and average price per county
// and property type, busiest groups first.
func (pw *PostgresWriter) CountyTypeSummary(ctx context.Context) ([]models.CountyTypeSummary, error) {
	var rows []models.CountyTypeSummary
	if err := pw.db.SelectContext(ctx, &rows, countyTypeSummarySQL); err != nil {
		return nil, &models.QueryError{Report: "county_type_summary", Err: err}
	}
	return rows, nil
}

// HighValueTransactions lists transactions priced above threshold, most
// expensive first.
func (pw *PostgresWriter) HighValueTransactions(ctx context.Context, threshold int64) ([]models.HighValueTransaction, error) {
	var rows []models.HighValueTransaction
	if err := pw.db.SelectContext(ctx, &rows, highValueTransactionsSQL, threshold); err != nil {
		return nil, &models.QueryError{Report: "high_value_transactions", Err: err}
	}
	return rows, nil
}
