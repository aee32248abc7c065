package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/currency"
)

type memorySource struct {
	rates map[string]decimal.Decimal
}

func (s *memorySource) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	rate, ok := s.rates[code]
	if !ok {
		return decimal.Zero, currency.ErrUnknownCurrency
	}
	return rate, nil
}

func (s *memorySource) SetRate(ctx context.Context, code string, rate decimal.Decimal) error {
	if s.rates == nil {
		s.rates = make(map[string]decimal.Decimal)
	}
	s.rates[code] = rate
	return nil
}

func TestImportCommandDryRunJSON(t *testing.T) {
	source := &memorySource{}
	cli, err := NewRatesCLI(source)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), RateImportOptions{
		SourceReader: strings.NewReader("code,rate\nCNY,2.15\nusd,15.5\n"),
		JSONOutput:   true,
		Stdout:       stdout,
		Stderr:       stderr,
	})
	require.Zero(t, exitCode, stderr.String())

	var summary RateImportSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, RateImportModeDry, summary.Mode)
	require.Len(t, summary.Rows, 2)
	require.Equal(t, "CNY", summary.Rows[0].Code)
	require.Equal(t, "USD", summary.Rows[1].Code)
	require.Empty(t, summary.Applied)
	require.Empty(t, source.rates)
}

func TestImportCommandApplyWritesSource(t *testing.T) {
	source := &memorySource{}
	cli, err := NewRatesCLI(source)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), RateImportOptions{
		Mode:         RateImportModeApply,
		SourceReader: strings.NewReader("CNY,2.15\n"),
		Stdout:       stdout,
		Stderr:       new(bytes.Buffer),
		Confirm:      func(io.Reader, io.Writer) (bool, error) { return true, nil },
	})
	require.Zero(t, exitCode)
	require.True(t, source.rates["CNY"].Equal(decimal.RequireFromString("2.15")))
	require.Contains(t, stdout.String(), "1 rates applied")
}

func TestImportCommandApplyAborted(t *testing.T) {
	source := &memorySource{}
	cli, err := NewRatesCLI(source)
	require.NoError(t, err)

	exitCode := cli.ImportCommand(context.Background(), RateImportOptions{
		Mode:         RateImportModeApply,
		SourceReader: strings.NewReader("CNY,2.15\n"),
		Stdout:       new(bytes.Buffer),
		Stderr:       new(bytes.Buffer),
		Confirm:      func(io.Reader, io.Writer) (bool, error) { return false, nil },
	})
	require.Equal(t, 1, exitCode)
	require.Empty(t, source.rates)
}

func TestImportCommandRejectsBadInput(t *testing.T) {
	source := &memorySource{}
	cli, err := NewRatesCLI(source)
	require.NoError(t, err)

	for _, input := range []string{
		"CN,2.15\n",
		"CNY,0\n",
		"CNY,-1\n",
		"CNY,abc\n",
		"",
	} {
		exitCode := cli.ImportCommand(context.Background(), RateImportOptions{
			SourceReader: strings.NewReader(input),
			Stdout:       new(bytes.Buffer),
			Stderr:       new(bytes.Buffer),
		})
		require.Equal(t, 1, exitCode, "input %q", input)
	}
}
