package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"price-paid-etl/models"
	"price-paid-etl/storage"
	"price-paid-etl/utils"
)

var (
	braceStripper = strings.NewReplacer("{", "", "}", "")
	quoteStripper = strings.NewReplacer(`"`, "")

	transferDateLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02"}
)

// Transformer cleans the tabular dataset and derives the computed columns.
type Transformer struct {
	logger    *utils.Logger
	cleanedTo string
}

// NewTransformer creates a Transformer. When cleanedTo is not empty the
// cleaned dataset is also written there.
func NewTransformer(logger *utils.Logger, cleanedTo string) *Transformer {
	return &Transformer{logger: logger, cleanedTo: cleanedTo}
}

type step struct {
	name string
	run  func(*models.Dataset, *models.TransformResult) (int, error)
	msg  string
}

var steps = []step{
	{"deduplicate", dropDuplicates, "Removed %d duplicate rows"},
	{"drop_nulls", dropNulls, "Removed %d rows containing null values"},
	{"average_price", averagePriceByType, "Average price calculated for %d property types"},
	{"reformat_transaction_id", stripBraces, "Transaction ID reformatted on %d rows"},
	{"strip_quotes", stripQuotes, "Quotes removed on %d rows"},
	{"build_address", buildAddress, "Address consolidated on %d rows"},
}

// TransformFile loads the tabular file at path and transforms it.
func (t *Transformer) TransformFile(path string) (*models.CleanedDataset, error) {
	ds, err := storage.ReadDataset(path)
	if err != nil {
		return nil, &models.TransformError{Step: "load", Err: err}
	}
	t.logger.Info("[transformer] Data loaded from %s, initial rows: %d", path, ds.Len())
	return t.Transform(ds)
}

// Transform applies the cleaning steps in order. Any failure aborts the whole
// transform with a *models.TransformError; ds is modified in place.
func (t *Transformer) Transform(ds *models.Dataset) (*models.CleanedDataset, error) {
	if err := ds.Require(models.RawColumns...); err != nil {
		return nil, &models.TransformError{Step: "load", Err: err}
	}

	res := models.TransformResult{Loaded: ds.Len()}
	for _, s := range steps {
		n, err := s.run(ds, &res)
		if err != nil {
			return nil, &models.TransformError{Step: s.name, Err: err}
		}
		t.logger.Info("[transformer] "+s.msg, n)
	}

	txs, err := project(ds)
	if err != nil {
		return nil, &models.TransformError{Step: "project", Err: err}
	}
	res.Output = len(txs)

	if t.cleanedTo != "" {
		if err := storage.WriteCleaned(t.cleanedTo, txs); err != nil {
			return nil, &models.TransformError{Step: "save", Err: err}
		}
		res.CleanedFilePath = t.cleanedTo
		t.logger.Info("[transformer] Cleaned dataset saved to %s", t.cleanedTo)
	}

	t.logger.Info("[transformer] Transformed data: %d rows and %d columns after cleaning",
		ds.Len(), len(ds.Columns))
	return &models.CleanedDataset{Table: ds, Transactions: txs, Stats: res}, nil
}

// dropDuplicates keeps the first occurrence of every identical row.
func dropDuplicates(ds *models.Dataset, res *models.TransformResult) (int, error) {
	seen := make(map[string]struct{}, ds.Len())
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	res.Duplicates = ds.Len() - len(kept)
	ds.Rows = kept
	return res.Duplicates, nil
}

// dropNulls removes every row with an empty cell in any column.
func dropNulls(ds *models.Dataset, res *models.TransformResult) (int, error) {
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		if hasEmpty(row) {
			continue
		}
		kept = append(kept, row)
	}
	res.NullRows = ds.Len() - len(kept)
	ds.Rows = kept
	return res.NullRows, nil
}

func hasEmpty(row []string) bool {
	for _, cell := range row {
		if cell == "" {
			return true
		}
	}
	return false
}

// averagePriceByType fills Avg_Price_by_Property_Type with the mean price of
// each row's property type, rounded to 2 decimals. The first pass accumulates
// per type, the second broadcasts.
func averagePriceByType(ds *models.Dataset, res *models.TransformResult) (int, error) {
	priceIdx, _ := ds.Index(models.ColPrice)
	typeIdx, _ := ds.Index(models.ColPropertyType)

	acc := newGroupAverager()
	for i, row := range ds.Rows {
		price, err := parsePrice(row[priceIdx])
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		acc.Add(row[typeIdx], price)
	}

	avgIdx := ds.AddColumn(models.ColAvgPrice)
	for _, row := range ds.Rows {
		row[avgIdx] = acc.Mean(row[typeIdx]).StringFixed(2)
	}

	res.PropertyTypes = acc.Groups()
	return res.PropertyTypes, nil
}

// stripBraces removes curly braces from the transaction identifier.
func stripBraces(ds *models.Dataset, res *models.TransformResult) (int, error) {
	idx, _ := ds.Index(models.ColTransactionID)
	for _, row := range ds.Rows {
		if cleaned := braceStripper.Replace(row[idx]); cleaned != row[idx] {
			row[idx] = cleaned
			res.IDsReformatted++
		}
	}
	return res.IDsReformatted, nil
}

// stripQuotes removes double quotes from every column in models.QuotedColumns.
func stripQuotes(ds *models.Dataset, res *models.TransformResult) (int, error) {
	idxs := make([]int, 0, len(models.QuotedColumns))
	for _, c := range models.QuotedColumns {
		i, _ := ds.Index(c)
		idxs = append(idxs, i)
	}

	for _, row := range ds.Rows {
		changed := false
		for _, i := range idxs {
			if cleaned := quoteStripper.Replace(row[i]); cleaned != row[i] {
				row[i] = cleaned
				changed = true
			}
		}
		if changed {
			res.QuotesRemoved++
		}
	}
	return res.QuotesRemoved, nil
}

// buildAddress joins the address components into the Address column,
// skipping blank components. Rows left with no component at all are dropped.
func buildAddress(ds *models.Dataset, res *models.TransformResult) (int, error) {
	if idx, ok := ds.Index(models.ColAddress); ok {
		for _, row := range ds.Rows {
			row[idx] = quoteStripper.Replace(row[idx])
		}
	}

	parts := make([]int, 0, len(models.AddressColumns))
	for _, c := range models.AddressColumns {
		i, _ := ds.Index(c)
		parts = append(parts, i)
	}

	addrIdx := ds.AddColumn(models.ColAddress)
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		addr := joinAddress(row, parts)
		if addr == "" {
			res.EmptyAddresses++
			continue
		}
		row[addrIdx] = addr
		kept = append(kept, row)
	}
	ds.Rows = kept
	res.AddressesBuilt = len(kept)
	return res.AddressesBuilt, nil
}

func joinAddress(row []string, idxs []int) string {
	components := make([]string, 0, len(idxs))
	for _, i := range idxs {
		if v := strings.TrimSpace(row[i]); v != "" {
			components = append(components, v)
		}
	}
	return strings.Join(components, ", ")
}

// project converts the cleaned table into typed transactions.
func project(ds *models.Dataset) ([]*models.Transaction, error) {
	col := func(name string) int {
		i, _ := ds.Index(name)
		return i
	}
	var (
		id, price, date, postcode = col(models.ColTransactionID), col(models.ColPrice), col(models.ColTransferDate), col(models.ColPostcode)
		ptype, oldNew, duration   = col(models.ColPropertyType), col(models.ColOldNew), col(models.ColDuration)
		paon, saon, street        = col(models.ColPAON), col(models.ColSAON), col(models.ColStreet)
		locality, town, district  = col(models.ColLocality), col(models.ColTownCity), col(models.ColDistrict)
		county, ppd, status       = col(models.ColCounty), col(models.ColPPDCategory), col(models.ColRecordStatus)
		avg, address              = col(models.ColAvgPrice), col(models.ColAddress)
	)

	txs := make([]*models.Transaction, 0, ds.Len())
	for i, row := range ds.Rows {
		p, err := parsePrice(row[price])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		d, err := parseTransferDate(row[date])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		a, err := decimal.NewFromString(row[avg])
		if err != nil {
			return nil, fmt.Errorf("row %d: average price %q: %w", i+1, row[avg], err)
		}

		txs = append(txs, &models.Transaction{
			TransactionID: unquote(row[id]),
			Price:         p,
			TransferDate:  d,
			Postcode:      row[postcode],
			PropertyType:  row[ptype],
			OldNew:        row[oldNew],
			Duration:      row[duration],
			PAON:          row[paon],
			SAON:          row[saon],
			Street:        row[street],
			Locality:      row[locality],
			TownCity:      row[town],
			District:      row[district],
			County:        row[county],
			PPDCategory:   row[ppd],
			RecordStatus:  row[status],
			AvgPrice:      a,
			Address:       row[address],
		})
	}
	return txs, nil
}

func unquote(s string) string {
	return strings.TrimSpace(quoteStripper.Replace(s))
}

func parsePrice(raw string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(unquote(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", raw, err)
	}
	return p, nil
}

func parseTransferDate(raw string) (time.Time, error) {
	s := unquote(raw)
	for _, layout := range transferDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date of transfer %q: %w", raw, errBadDate)
}

var errBadDate = errors.New("unrecognised date layout")

// groupAverager accumulates exact sums and counts per key.
type groupAverager struct {
	sums   map[string]decimal.Decimal
	counts map[string]int64
}

func newGroupAverager() *groupAverager {
	return &groupAverager{
		sums:   make(map[string]decimal.Decimal),
		counts: make(map[string]int64),
	}
}

func (g *groupAverager) Add(key string, v decimal.Decimal) {
	g.sums[key] = g.sums[key].Add(v)
	g.counts[key]++
}

// Mean returns the key's average rounded half away from zero to 2 places.
func (g *groupAverager) Mean(key string) decimal.Decimal {
	n := g.counts[key]
	if n == 0 {
		return decimal.Zero
	}
	return g.sums[key].Div(decimal.NewFromInt(n)).Round(2)
}

func (g *groupAverager) Groups() int { return len(g.counts) }
