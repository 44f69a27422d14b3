package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"price-paid-etl/models"
	"price-paid-etl/storage"
	"price-paid-etl/utils"
)

const (
	// HighValueThreshold is the exclusive lower bound of the high value report.
	HighValueThreshold int64 = 1_000_000

	CountyTypeReportFile = "average_price_by_property_type.csv"
	HighValueReportFile  = "transactions_above_1_million.csv"

	topCountyTypes = 10
	topHighValue   = 5
	barWidth       = 30
)

// ReportService runs the report queries and writes one CSV per report.
type ReportService struct {
	source storage.ReportSource
	dir    string
	logger *utils.Logger
}

func NewReportService(source storage.ReportSource, dir string, logger *utils.Logger) *ReportService {
	return &ReportService{source: source, dir: dir, logger: logger}
}

// Generate writes both report files under the report directory. A failing
// query stops report generation; files already written stay in place.
func (s *ReportService) Generate(ctx context.Context) (*models.ReportResult, error) {
	res := &models.ReportResult{
		CountyTypePath: filepath.Join(s.dir, CountyTypeReportFile),
		HighValuePath:  filepath.Join(s.dir, HighValueReportFile),
	}

	summary, err := s.source.CountyTypeSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	if err := storage.WriteCountyTypeReport(res.CountyTypePath, summary); err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	res.CountyTypeRows = len(summary)
	res.TopCountyTypes = head(summary, topCountyTypes)
	s.logger.Info("[reports] Wrote %d rows to %s", res.CountyTypeRows, res.CountyTypePath)

	expensive, err := s.source.HighValueTransactions(ctx, HighValueThreshold)
	if err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	if err := storage.WriteHighValueReport(res.HighValuePath, expensive); err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	res.HighValueRows = len(expensive)
	res.TopHighValue = head(expensive, topHighValue)
	s.logger.Info("[reports] Wrote %d rows to %s", res.HighValueRows, res.HighValuePath)

	return res, nil
}

// PrintReport renders a short console digest of the reports.
func PrintReport(w io.Writer, r *models.ReportResult) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 PRICE PAID REPORTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Busiest county / property type pairs\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopCountyTypes) == 0 {
		fmt.Fprintf(w, "  No transactions stored\n")
	} else {
		max := r.TopCountyTypes[0].TransactionCount
		for _, row := range r.TopCountyTypes {
			label := fmt.Sprintf("%s (%s)", truncate(row.County, 24), row.PropertyType)
			fmt.Fprintf(w, "  %-30s %-*s %6d  avg \033[1;32m£%s\033[0m\n",
				label, barWidth, bar(row.TransactionCount, max), row.TransactionCount, row.AvgPrice.StringFixed(2))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Most expensive transactions\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopHighValue) == 0 {
		fmt.Fprintf(w, "  None above £%d\n", HighValueThreshold)
	} else {
		for i, t := range r.TopHighValue {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-28s %-10s \033[1;31m£%s\033[0m\n",
				i+1, truncate(t.TownCity, 28), t.TransferDate.Format("2006-01-02"), t.Price.StringFixed(2))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Files: %s (%d rows), %s (%d rows)\n",
		r.CountyTypePath, r.CountyTypeRows, r.HighValuePath, r.HighValueRows)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

// bar scales n against max into at most barWidth blocks; any non-zero n gets one.
func bar(n, max int64) string {
	if n <= 0 || max <= 0 {
		return ""
	}
	width := int(n * barWidth / max)
	if width == 0 {
		width = 1
	}
	return strings.Repeat("█", width)
}

func head[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
