package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-paid-etl/models"
	"price-paid-etl/storage"
	"price-paid-etl/utils"
)

// rawRow returns a row as it comes out of the tabular file: every field still
// carries the extract's double quotes.
func rawRow(overrides map[string]string) []string {
	base := map[string]string{
		models.ColTransactionID: `"{AAA-1}"`,
		models.ColPrice:         `"100000"`,
		models.ColTransferDate:  `"2023-01-06 00:00"`,
		models.ColPostcode:      `"NW1 1AA"`,
		models.ColPropertyType:  `"D"`,
		models.ColOldNew:        `"N"`,
		models.ColDuration:      `"F"`,
		models.ColPAON:          `"12"`,
		models.ColSAON:          `""`,
		models.ColStreet:        `"Main St"`,
		models.ColLocality:      `""`,
		models.ColTownCity:      `"London"`,
		models.ColDistrict:      `"Camden"`,
		models.ColCounty:        `"Greater London"`,
		models.ColPPDCategory:   `"A"`,
		models.ColRecordStatus:  `"A"`,
	}
	for k, v := range overrides {
		base[k] = v
	}
	row := make([]string, 0, len(models.RawColumns))
	for _, c := range models.RawColumns {
		row = append(row, base[c])
	}
	return row
}

func rawDataset(rows ...[]string) *models.Dataset {
	ds := models.NewDataset(models.RawColumns)
	for _, r := range rows {
		ds.Append(r)
	}
	return ds
}

func TestTransformBuildsAddressAndTypedRecord(t *testing.T) {
	tr := NewTransformer(utils.NewNopLogger(), "")

	out, err := tr.Transform(rawDataset(rawRow(nil)))
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)

	tx := out.Transactions[0]
	assert.Equal(t, "12, Main St, London, Camden, Greater London, NW1 1AA", tx.Address)
	assert.Equal(t, "AAA-1", tx.TransactionID)
	assert.Equal(t, "100000", tx.Price.String())
	assert.Equal(t, time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC), tx.TransferDate)
	assert.Equal(t, "NW1 1AA", tx.Postcode)
	assert.Equal(t, "D", tx.PropertyType)
	assert.Equal(t, "", tx.SAON)
	assert.Equal(t, "Greater London", tx.County)

	assert.Equal(t, 1, out.Stats.Loaded)
	assert.Equal(t, 1, out.Stats.Output)
	assert.Equal(t, 1, out.Stats.IDsReformatted)
	assert.Equal(t, 1, out.Stats.QuotesRemoved)
	assert.True(t, out.Table.Has(models.ColAddress))
	assert.True(t, out.Table.Has(models.ColAvgPrice))
}

func TestTransformAveragePriceByPropertyType(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   string
	}{
		{"whole mean", []string{"100000", "200000", "300000"}, "200000.00"},
		{"rounds down", []string{"100000", "100000", "100001"}, "100000.33"},
		{"half rounds up", []string{"100000", "100000.01"}, "100000.01"},
		{"single row", []string{"275000"}, "275000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, 0, len(tt.prices)+1)
			for i, p := range tt.prices {
				rows = append(rows, rawRow(map[string]string{
					models.ColTransactionID: `"{D-` + string(rune('a'+i)) + `}"`,
					models.ColPrice:         `"` + p + `"`,
				}))
			}
			rows = append(rows, rawRow(map[string]string{
				models.ColTransactionID: `"{S-1}"`,
				models.ColPrice:         `"50000"`,
				models.ColPropertyType:  `"S"`,
			}))

			out, err := NewTransformer(utils.NewNopLogger(), "").Transform(rawDataset(rows...))
			require.NoError(t, err)
			require.Len(t, out.Transactions, len(tt.prices)+1)

			for _, tx := range out.Transactions {
				switch tx.PropertyType {
				case "D":
					assert.Equal(t, tt.want, tx.AvgPrice.StringFixed(2))
				case "S":
					assert.Equal(t, "50000.00", tx.AvgPrice.StringFixed(2))
				}
			}
			assert.Equal(t, 2, out.Stats.PropertyTypes)
		})
	}
}

func TestTransformDropsDuplicatesAndNulls(t *testing.T) {
	dup := rawRow(map[string]string{models.ColTransactionID: `"{DUP}"`})
	withNull := rawRow(map[string]string{
		models.ColTransactionID: `"{NULL}"`,
		models.ColStreet:        "",
	})
	other := rawRow(map[string]string{models.ColTransactionID: `"{OTHER}"`})

	out, err := NewTransformer(utils.NewNopLogger(), "").Transform(
		rawDataset(dup, append([]string(nil), dup...), withNull, other),
	)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Stats.Loaded)
	assert.Equal(t, 1, out.Stats.Duplicates)
	assert.Equal(t, 1, out.Stats.NullRows)
	assert.Equal(t, 2, out.Stats.Output)

	ids := []string{out.Transactions[0].TransactionID, out.Transactions[1].TransactionID}
	assert.Equal(t, []string{"DUP", "OTHER"}, ids)
}

func TestTransformQuotedEmptyIsNotNull(t *testing.T) {
	// `""` in the extract is an empty value, not a missing cell.
	row := rawRow(map[string]string{models.ColLocality: `""`, models.ColSAON: `""`})

	out, err := NewTransformer(utils.NewNopLogger(), "").Transform(rawDataset(row))
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "", out.Transactions[0].Locality)
	assert.Equal(t, 0, out.Stats.NullRows)
}

func TestTransformDropsRowsWithoutAddress(t *testing.T) {
	blank := rawRow(map[string]string{
		models.ColTransactionID: `"{BLANK}"`,
		models.ColPAON:          `""`,
		models.ColSAON:          `""`,
		models.ColStreet:        `" "`,
		models.ColLocality:      `""`,
		models.ColTownCity:      `""`,
		models.ColDistrict:      `""`,
		models.ColCounty:        `""`,
		models.ColPostcode:      `""`,
	})

	out, err := NewTransformer(utils.NewNopLogger(), "").Transform(rawDataset(blank, rawRow(nil)))
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "AAA-1", out.Transactions[0].TransactionID)
	assert.Equal(t, 1, out.Stats.EmptyAddresses)
	assert.Equal(t, 1, out.Stats.AddressesBuilt)
}

func TestTransformRebuildsExistingAddressColumn(t *testing.T) {
	cols := append(append([]string(nil), models.RawColumns...), models.ColAddress)
	ds := models.NewDataset(cols)
	ds.Append(append(rawRow(nil), `"stale address"`))

	out, err := NewTransformer(utils.NewNopLogger(), "").Transform(ds)
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "12, Main St, London, Camden, Greater London, NW1 1AA", out.Transactions[0].Address)
	assert.Len(t, out.Table.Columns, len(models.RawColumns)+2)
}

func TestTransformErrors(t *testing.T) {
	tests := []struct {
		name     string
		ds       *models.Dataset
		wantStep string
	}{
		{
			name:     "missing column",
			ds:       models.NewDataset(models.RawColumns[:5]),
			wantStep: "load",
		},
		{
			name:     "unparseable price",
			ds:       rawDataset(rawRow(map[string]string{models.ColPrice: `"lots"`})),
			wantStep: "average_price",
		},
		{
			name:     "unparseable date",
			ds:       rawDataset(rawRow(map[string]string{models.ColTransferDate: `"06/01/2023"`})),
			wantStep: "project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewTransformer(utils.NewNopLogger(), "").Transform(tt.ds)
			require.Error(t, err)
			assert.Nil(t, out)

			var te *models.TransformError
			require.True(t, errors.As(err, &te), "want *models.TransformError, got %T", err)
			assert.Equal(t, tt.wantStep, te.Step)
		})
	}
}

func TestTransformFileWritesCleanedDataset(t *testing.T) {
	dir := t.TempDir()
	tabular := filepath.Join(dir, "pp-monthly.csv")
	cleaned := filepath.Join(dir, "cleaned.csv")

	w, err := storage.NewTabularWriter(tabular, true)
	require.NoError(t, err)
	batch := models.NewTabularBatch(10)
	batch.Add(models.NewRawRecord(rawRow(map[string]string{models.ColTransactionID: `"{ONE}"`, models.ColPrice: `"100000"`})))
	batch.Add(models.NewRawRecord(rawRow(map[string]string{models.ColTransactionID: `"{TWO}"`, models.ColPrice: `"300000"`})))
	require.NoError(t, w.Append(batch))

	out, err := NewTransformer(utils.NewNopLogger(), cleaned).TransformFile(tabular)
	require.NoError(t, err)
	assert.Equal(t, cleaned, out.Stats.CleanedFilePath)
	require.Len(t, out.Transactions, 2)
	assert.Equal(t, "200000.00", out.Transactions[0].AvgPrice.StringFixed(2))

	saved, err := storage.ReadDataset(cleaned)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Len())
	require.NoError(t, saved.Require(models.ColAvgPrice, models.ColAddress))

	idIdx, _ := saved.Index(models.ColTransactionID)
	addrIdx, _ := saved.Index(models.ColAddress)
	assert.Equal(t, "ONE", saved.Rows[0][idIdx])
	assert.Equal(t, "12, Main St, London, Camden, Greater London, NW1 1AA", saved.Rows[0][addrIdx])
}

func TestTransformFileMissing(t *testing.T) {
	_, err := NewTransformer(utils.NewNopLogger(), "").TransformFile(filepath.Join(t.TempDir(), "absent.csv"))

	var te *models.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "load", te.Step)
}
