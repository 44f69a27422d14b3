package storage

import (
	"context"
	"fmt"

	"price-paid-etl/models"
)

// Dimensions maps each lookup table's natural code to its surrogate key.
// It is loaded once per run instead of joining per inserted row.
type Dimensions struct {
	PropertyTypes  map[string]int64
	Tenures        map[string]int64
	PPDCategories  map[string]int64
	RecordStatuses map[string]int64
}

// DimensionKeys are the resolved foreign keys of one transaction.
type DimensionKeys struct {
	PropertyType int64
	Tenure       int64
	PPDCategory  int64
	RecordStatus int64
}

type codeRow struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

// LoadDimensions reads all four lookup tables.
func (pw *PostgresWriter) LoadDimensions(ctx context.Context) (*Dimensions, error) {
	d := &Dimensions{}
	var err error

	if d.PropertyTypes, err = pw.loadCodes(ctx,
		"SELECT property_type_id AS id, property_type_code AS code FROM property_types"); err != nil {
		return nil, err
	}
	if d.Tenures, err = pw.loadCodes(ctx,
		"SELECT tenure_id AS id, tenure_code AS code FROM tenures"); err != nil {
		return nil, err
	}
	if d.PPDCategories, err = pw.loadCodes(ctx,
		"SELECT ppd_category_id AS id, ppd_category_code AS code FROM ppd_categories"); err != nil {
		return nil, err
	}
	if d.RecordStatuses, err = pw.loadCodes(ctx,
		"SELECT record_status_id AS id, record_status_code AS code FROM record_statuses"); err != nil {
		return nil, err
	}

	pw.logger.Debug("[loader] Dimensions loaded: %d property types, %d tenures, %d categories, %d statuses",
		len(d.PropertyTypes), len(d.Tenures), len(d.PPDCategories), len(d.RecordStatuses))
	return d, nil
}

func (pw *PostgresWriter) loadCodes(ctx context.Context, query string) (map[string]int64, error) {
	var rows []codeRow
	if err := pw.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("postgres: load dimension: %w", err)
	}
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Code] = r.ID
	}
	return m, nil
}

// Resolve looks up the four foreign keys of t.
func (d *Dimensions) Resolve(t *models.Transaction) (DimensionKeys, error) {
	var k DimensionKeys
	var ok bool

	if k.PropertyType, ok = d.PropertyTypes[t.PropertyType]; !ok {
		return k, fmt.Errorf("unknown property type %q", t.PropertyType)
	}
	if k.Tenure, ok = d.Tenures[t.Duration]; !ok {
		return k, fmt.Errorf("unknown tenure %q", t.Duration)
	}
	if k.PPDCategory, ok = d.PPDCategories[t.PPDCategory]; !ok {
		return k, fmt.Errorf("unknown PPD category %q", t.PPDCategory)
	}
	if k.RecordStatus, ok = d.RecordStatuses[t.RecordStatus]; !ok {
		return k, fmt.Errorf("unknown record status %q", t.RecordStatus)
	}
	return k, nil
}
