// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/export"
)

// MetadataListTiers describes the list_tiers tool.
var MetadataListTiers = &mcp.Tool{
	Name:        "list_tiers",
	Description: "List the coverage tiers from highest to lowest and the threshold subsets with their export file names.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputListTiers is the input for the ListTiers tool.
type InputListTiers struct{}

// ThresholdInfo describes one threshold subset.
type ThresholdInfo struct {
	Threshold string `json:"threshold"`
	Label     string `json:"label"`
	File      string `json:"file"`
}

// OutputListTiers is the output for the ListTiers tool.
type OutputListTiers struct {
	Tiers      []string        `json:"tiers"`
	Thresholds []ThresholdInfo `json:"thresholds"`
}

// ListTiers returns the static tier and subset catalogue.
func ListTiers(_ context.Context, _ *mcp.CallToolRequest, _ InputListTiers) (*mcp.CallToolResult, OutputListTiers, error) {
	var out OutputListTiers
	for _, t := range coverage.Tiers() {
		out.Tiers = append(out.Tiers, string(t))
	}
	for _, th := range coverage.Thresholds() {
		out.Thresholds = append(out.Thresholds, ThresholdInfo{
			Threshold: string(th),
			Label:     th.Label(),
			File:      export.SubsetFileName(th),
		})
	}
	return nil, out, nil
}
