package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-paid-etl/models"
	"price-paid-etl/utils"
)

type fakeReportSource struct {
	summary   []models.CountyTypeSummary
	expensive []models.HighValueTransaction
	threshold int64
	err       error
}

func (f *fakeReportSource) CountyTypeSummary(ctx context.Context) ([]models.CountyTypeSummary, error) {
	if f.err != nil {
		return nil, &models.QueryError{Report: "county_type_summary", Err: f.err}
	}
	return f.summary, nil
}

func (f *fakeReportSource) HighValueTransactions(ctx context.Context, threshold int64) ([]models.HighValueTransaction, error) {
	f.threshold = threshold
	return f.expensive, nil
}

func sampleReportSource() *fakeReportSource {
	return &fakeReportSource{
		summary: []models.CountyTypeSummary{
			{County: "KENT", PropertyType: "D", TransactionCount: 3, AvgPrice: decimal.RequireFromString("766666.67")},
			{County: "GREATER LONDON", PropertyType: "F", TransactionCount: 2, AvgPrice: decimal.RequireFromString("450000.00")},
			{County: "SURREY", PropertyType: "S", TransactionCount: 1, AvgPrice: decimal.RequireFromString("390000.00")},
		},
		expensive: []models.HighValueTransaction{
			{
				TransactionID: "BBB-2",
				Price:         decimal.NewFromInt(2_500_000),
				TransferDate:  time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
				TownCity:      "LONDON",
				County:        "GREATER LONDON",
				Postcode:      "W1 1AA",
			},
		},
	}
}

func TestReportGenerateWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	src := sampleReportSource()
	svc := NewReportService(src, dir, utils.NewNopLogger())

	res, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, HighValueThreshold, src.threshold)
	assert.Equal(t, 3, res.CountyTypeRows)
	assert.Equal(t, 1, res.HighValueRows)
	assert.Equal(t, filepath.Join(dir, CountyTypeReportFile), res.CountyTypePath)
	assert.Equal(t, filepath.Join(dir, HighValueReportFile), res.HighValuePath)

	summary, err := os.ReadFile(res.CountyTypePath)
	require.NoError(t, err)
	assert.Equal(t,
		"county,property_type,transaction_count,avg_price\n"+
			"KENT,D,3,766666.67\n"+
			"GREATER LONDON,F,2,450000\n"+
			"SURREY,S,1,390000\n",
		string(summary))

	expensive, err := os.ReadFile(res.HighValuePath)
	require.NoError(t, err)
	assert.Equal(t,
		"transaction_unique_id,price,date_of_transfer,town_city,county,postcode\n"+
			"BBB-2,2500000,2023-03-01,LONDON,GREATER LONDON,W1 1AA\n",
		string(expensive))
}

func TestReportGenerateEmptyDatabase(t *testing.T) {
	svc := NewReportService(&fakeReportSource{}, t.TempDir(), utils.NewNopLogger())

	res, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.CountyTypeRows)
	assert.Zero(t, res.HighValueRows)

	body, err := os.ReadFile(res.HighValuePath)
	require.NoError(t, err)
	assert.Equal(t, "transaction_unique_id,price,date_of_transfer,town_city,county,postcode\n", string(body))
}

func TestReportGenerateQueryFailure(t *testing.T) {
	dir := t.TempDir()
	svc := NewReportService(&fakeReportSource{err: errors.New("relation does not exist")}, dir, utils.NewNopLogger())

	res, err := svc.Generate(context.Background())
	assert.Nil(t, res)

	var qe *models.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "county_type_summary", qe.Report)

	_, statErr := os.Stat(filepath.Join(dir, CountyTypeReportFile))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestReportPrint(t *testing.T) {
	svc := NewReportService(sampleReportSource(), t.TempDir(), utils.NewNopLogger())
	res, err := svc.Generate(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "KENT (D)")
	assert.Contains(t, out, "£766666.67")
	assert.Contains(t, out, "£2500000.00")
	assert.Contains(t, out, "2023-03-01")

	buf.Reset()
	PrintReport(&buf, &models.ReportResult{})
	assert.Contains(t, buf.String(), "No transactions stored")
	assert.Contains(t, buf.String(), "None above £1000000")
}

func TestBar(t *testing.T) {
	tests := []struct {
		n, max int64
		want   int
	}{
		{10, 10, barWidth},
		{5, 10, barWidth / 2},
		{1, 1000, 1},
		{0, 10, 0},
	}
	for _, tt := range tests {
		got := []rune(bar(tt.n, tt.max))
		assert.Len(t, got, tt.want, "bar(%d, %d)", tt.n, tt.max)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"KENT", 24, "KENT"},
		{"YNYS MÔN", 8, "YNYS MÔN"},
		{"RHONDDA CYNON TÂF AND ÔTHERS", 20, "RHONDDA CYNON TÂF..."},
		{"ÂÂÂÂÂÂ", 5, "ÂÂ..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got), "truncate(%q, %d) split a rune", tt.in, tt.max)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
	}
}
