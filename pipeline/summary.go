package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"price-paid-etl/services"
)

// PrintSummary writes the per-stage counters of a run, followed by the report
// digest when the report stage ran.
func PrintSummary(w io.Writer, s *Summary) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;36m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;36m  PRICE PAID ETL RUN %s\033[0m\n", s.RunID)
	fmt.Fprintf(w, "\033[1;36m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Stages\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)

	switch {
	case s.Fetch == nil:
		stageLine(w, "fetch", "not run")
	case s.Fetch.Skipped:
		stageLine(w, "fetch", "reused "+s.Fetch.Path)
	default:
		stageLine(w, "fetch", fmt.Sprintf("%d bytes → %s", s.Fetch.Bytes, s.Fetch.Path))
	}

	if c := s.Convert; c != nil {
		stageLine(w, "convert", fmt.Sprintf("%d lines, %d processed, %d skipped in %d batches",
			c.Lines, c.Processed, c.Skipped, c.Batches))
	} else {
		stageLine(w, "convert", "not run")
	}

	if t := s.Transform; t != nil {
		stageLine(w, "transform", fmt.Sprintf("%d in, %d out (%d duplicates, %d with nulls, %d without address)",
			t.Loaded, t.Output, t.Duplicates, t.NullRows, t.EmptyAddresses))
	} else {
		stageLine(w, "transform", "not run")
	}

	if l := s.Load; l != nil {
		stageLine(w, "load", fmt.Sprintf("%d attempted, \033[1;32m%d inserted\033[0m, %d already stored, \033[1;31m%d failed\033[0m",
			l.Attempted, l.Inserted, l.Conflicts, l.Failed))
	} else {
		stageLine(w, "load", "not run")
	}

	if r := s.Report; r != nil {
		stageLine(w, "report", fmt.Sprintf("%d + %d rows written", r.CountyTypeRows, r.HighValueRows))
	} else {
		stageLine(w, "report", "not run")
	}

	fmt.Fprintf(w, "\n  Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))

	if s.Report != nil {
		services.PrintReport(w, s.Report)
	} else {
		fmt.Fprintf(w, "\033[1;36m%s\033[0m\n\n", sep)
	}
}

func stageLine(w io.Writer, stage, detail string) {
	fmt.Fprintf(w, "  \033[1m%-10s\033[0m %s\n", stage, detail)
}
