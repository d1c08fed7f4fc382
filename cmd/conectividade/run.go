// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/export"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
)

var (
	refreshFirst bool
	subsetFlag   string
	stateFlag    string
	formatFlag   string
	exportDir    string
)

// runCmd computes coverage and prints it.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute coverage and print the summary and a subset table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := coverage.ParseThreshold(subsetFlag)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.pipeline.RunWithMeta(ctx, coverage.RunOptions{Refresh: refreshFirst})
		if err != nil {
			return err
		}

		if !result.KnownState(stateFlag) {
			return fmt.Errorf("unknown state %q", stateFlag)
		}
		out := cmd.OutOrStdout()
		printSummary(out, result)
		rows := coverage.FilterState(result.Table.Subset(th), stateFlag)
		coverage.SortRows(rows)
		fmt.Fprintf(out, "\nMunicípios (%s): %s\n", th.Label(), coverage.FormatCount(len(rows)))
		return printRows(out, rows)
	},
}

// refreshCmd forces a snapshot refresh.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the dataset from the remote source and replace the local snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.cache.Load(ctx, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "origin=%s records=%s fetched_at=%s\n",
			result.Origin, coverage.FormatCount(result.Dataset.Len()), result.Dataset.FetchedAt.Format("2006-01-02 15:04:05"))
		if result.Origin == snapshot.OriginStale {
			return fmt.Errorf("remote source unavailable, previous snapshot kept: %w", result.FetchErr)
		}
		return nil
	},
}

// exportCmd writes the named subset files and the consolidated base.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the subset files and the consolidated eligible-school base",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		writer, err := export.ForFormat(export.Format(formatFlag))
		if err != nil {
			return err
		}
		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}

		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.pipeline.RunWithMeta(ctx, coverage.RunOptions{Refresh: refreshFirst})
		if err != nil {
			return err
		}

		paths, err := export.WriteSubsets(dir, result.Table, writer)
		if err != nil {
			return err
		}
		base, err := export.WriteConsolidated(dir, result.Eligible)
		if err != nil {
			return err
		}
		paths = append(paths, base)

		logger.Info("export written", zap.String("run_id", result.RunID), zap.String("dir", dir), zap.Int("files", len(paths)))
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func printSummary(out io.Writer, result *coverage.RunResult) {
	s := result.Summary
	fmt.Fprintf(out, "Origem dos dados: %s", result.Origin)
	if !result.FetchedAt.IsZero() {
		fmt.Fprintf(out, " (%s)", result.FetchedAt.Format("02/01/2006 15:04"))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total de escolas:                  %s\n", coverage.FormatCount(s.TotalSchools))
	fmt.Fprintf(out, "Escolas elegíveis:                 %s\n", coverage.FormatCount(s.EligibleSchools))
	fmt.Fprintf(out, "Com medidor ativo:                 %s\n", coverage.FormatCount(s.ActiveSchools))
	fmt.Fprintf(out, "Sem medidor ativo:                 %s\n", coverage.FormatCount(s.InactiveSchools))
	fmt.Fprintf(out, "Fora da lista de adesão:           %s\n", coverage.FormatCount(s.OutOfRegistrySchools))
	fmt.Fprintf(out, "Municípios com escolas elegíveis:  %s de %s\n",
		coverage.FormatCount(s.Municipalities), coverage.FormatCount(s.EnrolledMunicipalities))
	for _, tier := range coverage.Tiers() {
		fmt.Fprintf(out, "  %-8s %s\n", tier, coverage.FormatCount(s.TierCounts[tier]))
	}
	if n := result.Normalization.UnrecognizedTotal(); n > 0 {
		fmt.Fprintf(out, "Rótulos não reconhecidos:          %s\n", coverage.FormatCount(n))
	}
}

func printRows(out io.Writer, rows []coverage.MunicipalityCoverage) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UF\tMUNICÍPIO\tCÓDIGO\tESCOLAS\tATIVAS\tCOBERTURA\tFAIXA")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.State, r.Name, r.Code,
			coverage.FormatCount(r.TotalEligibleSchools),
			coverage.FormatCount(r.ActiveSchools),
			coverage.FormatRatio(r.CoverageRatio),
			r.Tier)
	}
	return tw.Flush()
}
