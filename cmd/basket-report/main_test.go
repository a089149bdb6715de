package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcast/internal/config"
)

func TestParseFlags(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, opts options)
	}{
		{
			name: "defaults from config",
			args: []string{"-in", "sales.csv"},
			check: func(t *testing.T, opts options) {
				assert.Equal(t, "sales.csv", opts.in)
				assert.Equal(t, cfg.Output.Dir, opts.out)
				assert.Equal(t, cfg.Forecast.DefaultHorizonDays, opts.horizon)
				assert.Equal(t, "revenue", opts.metric)
				assert.Nil(t, opts.minSupport)
				assert.Nil(t, opts.minConfidence)
				assert.Nil(t, opts.minLift)
			},
		},
		{
			name: "explicit thresholds",
			args: []string{"-in", "sales.xlsx", "-min-support", "0.05", "-min-lift", "0", "-metric", "Quantity"},
			check: func(t *testing.T, opts options) {
				require.NotNil(t, opts.minSupport)
				assert.Equal(t, 0.05, *opts.minSupport)
				require.NotNil(t, opts.minLift)
				assert.Equal(t, 0.0, *opts.minLift)
				assert.Nil(t, opts.minConfidence)
				assert.Equal(t, "quantity", opts.metric)
			},
		},
		{
			name: "latest export of a directory",
			args: []string{"-in", "exports", "-latest"},
			check: func(t *testing.T, opts options) {
				assert.True(t, opts.latest)
			},
		},
		{
			name: "version without input",
			args: []string{"-version"},
			check: func(t *testing.T, opts options) {
				assert.True(t, opts.version)
			},
		},
		{
			name:    "missing input",
			args:    []string{"-out", "reports"},
			wantErr: "-in is required",
		},
		{
			name:    "horizon out of range",
			args:    []string{"-in", "sales.csv", "-horizon", "0"},
			wantErr: "-horizon 0 outside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

// writeSalesLog writes days of two-basket sales: bread and milk sell together
// every day and eggs join the second basket on even days
func writeSalesLog(t *testing.T, dir, name string, days int, dated bool) string {
	t.Helper()
	var b strings.Builder
	if dated {
		b.WriteString("Order ID,Item,Date,Qty,Price\n")
	} else {
		b.WriteString("Order ID,Item,Qty,Price\n")
	}
	prefix := strings.TrimSuffix(name, filepath.Ext(name))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		items := [][]string{{"bread", "milk"}, {"bread", "milk"}}
		if d%2 == 0 {
			items[1] = append(items[1], "eggs")
		}
		for i, basket := range items {
			for _, item := range basket {
				if dated {
					fmt.Fprintf(&b, "%s-%d-%d,%s,%s,1,2.00\n", prefix, d, i, item, date)
				} else {
					fmt.Fprintf(&b, "%s-%d-%d,%s,1,2.00\n", prefix, d, i, item)
				}
			}
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()

	t.Run("dated log produces all reports", func(t *testing.T) {
		dir := t.TempDir()
		support := 0.3
		opts := options{
			in:         writeSalesLog(t, dir, "store.csv", 40, true),
			out:        filepath.Join(dir, "reports"),
			horizon:    7,
			metric:     "revenue",
			minSupport: &support,
		}

		var stdout bytes.Buffer
		files, err := run(context.Background(), opts, cfg, logger, &stdout)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(opts.out, "store_rules.csv"), files.Rules)
		rules := readCSV(t, files.Rules)
		assert.Greater(t, len(rules), 1)

		itemsets := readCSV(t, files.Itemsets)
		assert.Greater(t, len(itemsets), 1)

		daily := readCSV(t, files.Daily)
		assert.Len(t, daily, 41)

		forecastRows := readCSV(t, files.Forecast)
		assert.Len(t, forecastRows, 8)
		assert.Equal(t, "2024-02-10", forecastRows[1][0])

		assert.Contains(t, stdout.String(), "=== Basket Analysis ===")
		assert.Contains(t, stdout.String(), "=== Revenue Forecast ===")
	})

	t.Run("undated log skips forecast", func(t *testing.T) {
		dir := t.TempDir()
		opts := options{
			in:      writeSalesLog(t, dir, "store.csv", 5, false),
			out:     dir,
			horizon: 7,
			metric:  "revenue",
		}

		var stdout bytes.Buffer
		files, err := run(context.Background(), opts, cfg, logger, &stdout)
		require.NoError(t, err)

		assert.FileExists(t, files.Rules)
		assert.Empty(t, files.Forecast)
		assert.NotContains(t, stdout.String(), "Forecast")
	})

	t.Run("directory of exports is merged", func(t *testing.T) {
		exports := filepath.Join(t.TempDir(), "exports")
		require.NoError(t, os.Mkdir(exports, 0755))
		writeSalesLog(t, exports, "a.csv", 3, true)
		writeSalesLog(t, exports, "b.csv", 3, true)
		out := t.TempDir()

		report, err := run(context.Background(), options{in: exports, out: out, horizon: 2, metric: "transactions"}, cfg, logger, io.Discard)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(out, "exports_rules.csv"), report.Rules)
		assert.Equal(t, filepath.Join(out, "exports_transactions_forecast.csv"), report.Forecast)

		// both files cover the same three days, so each day has four baskets
		daily := readCSV(t, report.Daily)
		require.Len(t, daily, 4)
		assert.Equal(t, "4", daily[1][3])
	})

	t.Run("latest picks the newest export", func(t *testing.T) {
		exports := filepath.Join(t.TempDir(), "exports")
		require.NoError(t, os.Mkdir(exports, 0755))
		older := writeSalesLog(t, exports, "a.csv", 3, true)
		newer := writeSalesLog(t, exports, "b.csv", 3, true)
		now := time.Now()
		require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
		require.NoError(t, os.Chtimes(newer, now, now))
		out := t.TempDir()

		report, err := run(context.Background(), options{in: exports, out: out, horizon: 2, metric: "transactions", latest: true}, cfg, logger, io.Discard)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(out, "b_rules.csv"), report.Rules)
		assert.Equal(t, filepath.Join(out, "b_transactions_forecast.csv"), report.Forecast)
		daily := readCSV(t, report.Daily)
		require.Len(t, daily, 4)
		assert.Equal(t, "2", daily[1][3])
	})

	t.Run("runs are indexed", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "reports")
		dated := options{in: writeSalesLog(t, dir, "store.csv", 20, true), out: out, horizon: 3, metric: "revenue"}
		undated := options{in: writeSalesLog(t, dir, "till.csv", 5, false), out: out, horizon: 3, metric: "revenue"}

		first, err := run(context.Background(), dated, cfg, logger, io.Discard)
		require.NoError(t, err)
		second, err := run(context.Background(), undated, cfg, logger, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(out, runsIndex), first.Runs)
		assert.Equal(t, first.Runs, second.Runs)

		rows := readCSV(t, first.Runs)
		require.Len(t, rows, 3)
		assert.Equal(t, runsHeader[1:], rows[0][1:])
		assert.Equal(t, dated.in, rows[1][1])
		assert.Equal(t, "40", rows[1][2])
		assert.Equal(t, "revenue", rows[1][4])
		assert.Equal(t, "3", rows[1][5])
		assert.Equal(t, "store_revenue_forecast.csv", rows[1][6])
		assert.Equal(t, undated.in, rows[2][1])
		assert.Empty(t, rows[2][6])
	})

	t.Run("missing file", func(t *testing.T) {
		opts := options{in: filepath.Join(t.TempDir(), "absent.csv"), out: t.TempDir(), horizon: 7}
		_, err := run(context.Background(), opts, cfg, logger, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absent.csv")
	})
}
