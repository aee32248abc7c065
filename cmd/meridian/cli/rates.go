// Package cli hosts operational helpers shipped with the meridian binary.
package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/currency"
)

// RatesCLI imports exchange rates into the shared currency registry.
type RatesCLI struct {
	source currency.Source
}

// NewRatesCLI constructs a helper over a rate source.
func NewRatesCLI(source currency.Source) (*RatesCLI, error) {
	if source == nil {
		return nil, errors.New("rates cli: source required")
	}
	return &RatesCLI{source: source}, nil
}

// RateImportMode enumerates supported execution strategies.
type RateImportMode string

const (
	// RateImportModeDry previews the parsed rates without applying changes.
	RateImportModeDry RateImportMode = "dry"
	// RateImportModeApply persists rates after confirmation.
	RateImportModeApply RateImportMode = "apply"
)

// RateImportOptions configures the import command execution.
type RateImportOptions struct {
	Mode         RateImportMode
	Source       string
	SourceReader io.Reader
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
	Stdin        io.Reader
	Confirm      func(io.Reader, io.Writer) (bool, error)
}

// RateImportRow is one parsed code/rate pair.
type RateImportRow struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// RateImportSummary captures the structured reporting outcome.
type RateImportSummary struct {
	Mode    RateImportMode  `json:"mode"`
	Rows    []RateImportRow `json:"rows"`
	Applied []RateImportRow `json:"applied,omitempty"`
}

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ImportCommand executes the rate import workflow. Input is CSV with a
// code,rate pair per line; a header row is skipped when present.
func (c *RatesCLI) ImportCommand(ctx context.Context, opts RateImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Mode == "" {
		opts.Mode = RateImportModeDry
	}
	mode := RateImportMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case RateImportModeDry, RateImportModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "rates import: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}

	reader := opts.SourceReader
	if reader == nil {
		if opts.Source == "" {
			fmt.Fprintln(opts.Stderr, "rates import: --source is required")
			return 1
		}
		file, err := os.Open(opts.Source)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "rates import: open %s: %v\n", opts.Source, err)
			return 1
		}
		defer file.Close()
		reader = file
	}

	rows, err := parseRateCSV(reader)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "rates import: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(opts.Stderr, "rates import: no rates in input")
		return 1
	}

	summary := RateImportSummary{Mode: mode, Rows: rows}

	if mode == RateImportModeApply {
		confirm := opts.Confirm
		if confirm == nil {
			confirm = promptConfirm
		}
		ok, err := confirm(opts.Stdin, opts.Stdout)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "rates import: confirm: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(opts.Stdout, "rates import: aborted")
			return 1
		}
		for _, row := range rows {
			if err := c.source.SetRate(ctx, row.Code, row.Rate); err != nil {
				fmt.Fprintf(opts.Stderr, "rates import: set %s: %v\n", row.Code, err)
				return 1
			}
			summary.Applied = append(summary.Applied, row)
		}
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "rates import: encode summary: %v\n", err)
			return 1
		}
		return 0
	}

	for _, row := range rows {
		fmt.Fprintf(opts.Stdout, "%s\t%s\n", row.Code, row.Rate.String())
	}
	if mode == RateImportModeDry {
		fmt.Fprintf(opts.Stdout, "%d rates parsed (dry run, nothing applied)\n", len(rows))
	} else {
		fmt.Fprintf(opts.Stdout, "%d rates applied\n", len(summary.Applied))
	}
	return 0
}

func parseRateCSV(r io.Reader) ([]RateImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	byCode := make(map[string]decimal.Decimal)
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		code := strings.ToUpper(strings.TrimSpace(record[0]))
		if first {
			first = false
			if strings.EqualFold(code, "code") {
				continue
			}
		}
		if !currencyCodePattern.MatchString(code) {
			return nil, fmt.Errorf("invalid currency code %q", record[0])
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		// last row wins on duplicate codes, matching registry semantics
		byCode[code] = rate
	}

	rows := make([]RateImportRow, 0, len(byCode))
	for code, rate := range byCode {
		rows = append(rows, RateImportRow{Code: code, Rate: rate})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func promptConfirm(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, "apply these rates? [y/N]: ")
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
