// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// MetadataComputeCoverage describes the compute_coverage tool.
var MetadataComputeCoverage = &mcp.Tool{
	Name: "compute_coverage",
	Description: "Compute device coverage per enrolled municipality: the share of municipal schools " +
		"with internet whose measurement device is confirmed active. " +
		"Returns the headline summary and the rows of the requested subset " +
		"(all, or municipalities at >=50%, >=70%, >=80% or 100% coverage), sorted by state and name. " +
		"Uses the local snapshot unless refresh is set.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"threshold": map[string]interface{}{
				"type":        "string",
				"description": "Subset to return. Defaults to all.",
				"enum":        []string{"all", "50", "70", "80", "100"},
			},
			"state": map[string]interface{}{
				"type":        "string",
				"description": "Optional two-letter state code (UF) to filter rows, e.g. SP.",
			},
			"refresh": map[string]interface{}{
				"type":        "boolean",
				"description": "Fetch the dataset from the remote source before computing.",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of rows to return. 0 returns every row.",
				"minimum":     0,
			},
		},
	},
}

// InputComputeCoverage is the input for the ComputeCoverage tool.
type InputComputeCoverage struct {
	Threshold string `json:"threshold"`
	State     string `json:"state"`
	Refresh   bool   `json:"refresh"`
	Limit     int    `json:"limit"`
}

// OutputComputeCoverage is the output for the ComputeCoverage tool.
type OutputComputeCoverage struct {
	RunID             string `json:"run_id"`
	Origin            string `json:"origin"`
	FetchedAt         string `json:"fetched_at"`
	VocabularyVersion string `json:"vocabulary_version"`
	// UnrecognizedLabels counts raw labels routed to a default class.
	UnrecognizedLabels int              `json:"unrecognized_labels"`
	Summary            coverage.Summary `json:"summary"`
	Threshold          string           `json:"threshold"`
	// TotalRows is the subset size before Limit is applied.
	TotalRows int                             `json:"total_rows"`
	Rows      []coverage.MunicipalityCoverage `json:"rows"`
}

// Runner runs the coverage pipeline.
type Runner interface {
	RunWithMeta(ctx context.Context, opts coverage.RunOptions) (*coverage.RunResult, error)
}

// ComputeCoverage runs the pipeline and returns the requested subset.
func (h *Handlers) ComputeCoverage(ctx context.Context, _ *mcp.CallToolRequest, input InputComputeCoverage) (*mcp.CallToolResult, OutputComputeCoverage, error) {
	th, err := coverage.ParseThreshold(input.Threshold)
	if err != nil {
		return nil, OutputComputeCoverage{}, err
	}
	if input.Limit < 0 {
		return nil, OutputComputeCoverage{}, fmt.Errorf("limit must not be negative")
	}

	result, err := h.Runner.RunWithMeta(ctx, coverage.RunOptions{Refresh: input.Refresh})
	if err != nil {
		return nil, OutputComputeCoverage{}, err
	}

	if !result.KnownState(input.State) {
		return nil, OutputComputeCoverage{}, fmt.Errorf("unknown state %q", input.State)
	}
	rows := coverage.FilterState(result.Table.Subset(th), input.State)
	coverage.SortRows(rows)
	total := len(rows)
	if input.Limit > 0 && len(rows) > input.Limit {
		rows = rows[:input.Limit]
	}

	return nil, OutputComputeCoverage{
		RunID:              result.RunID,
		Origin:             string(result.Origin),
		FetchedAt:          formatTime(result.FetchedAt),
		VocabularyVersion:  result.VocabularyVersion,
		UnrecognizedLabels: result.Normalization.UnrecognizedTotal(),
		Summary:            result.Summary,
		Threshold:          string(th),
		TotalRows:          total,
		Rows:               rows,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
