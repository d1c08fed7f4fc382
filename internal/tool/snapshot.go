// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// MetadataRefreshSnapshot describes the refresh_snapshot tool.
var MetadataRefreshSnapshot = &mcp.Tool{
	Name: "refresh_snapshot",
	Description: "Fetch the school connectivity dataset from the remote source and replace the local snapshot. " +
		"When the source is unavailable and a previous snapshot exists, that snapshot is kept " +
		"and reported with origin \"stale\".",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputRefreshSnapshot is the input for the RefreshSnapshot tool.
type InputRefreshSnapshot struct{}

// OutputRefreshSnapshot is the output for the RefreshSnapshot tool.
type OutputRefreshSnapshot struct {
	Origin    string `json:"origin"`
	Records   int    `json:"records"`
	FetchedAt string `json:"fetched_at"`
	Source    string `json:"source"`
	// FetchError is set when a stale snapshot was served.
	FetchError string `json:"fetch_error,omitempty"`
}

// RefreshSnapshot forces a remote fetch through the snapshot cache.
func (h *Handlers) RefreshSnapshot(ctx context.Context, _ *mcp.CallToolRequest, _ InputRefreshSnapshot) (*mcp.CallToolResult, OutputRefreshSnapshot, error) {
	result, err := h.Datasets.Load(ctx, true)
	if err != nil {
		return nil, OutputRefreshSnapshot{}, err
	}
	out := OutputRefreshSnapshot{
		Origin:    string(result.Origin),
		Records:   result.Dataset.Len(),
		FetchedAt: formatTime(result.Dataset.FetchedAt),
		Source:    result.Dataset.Source,
	}
	if result.FetchErr != nil {
		out.FetchError = result.FetchErr.Error()
	}
	return nil, out, nil
}

// Handlers holds the collaborators behind the MCP tools.
type Handlers struct {
	Runner   Runner
	Datasets coverage.DatasetLoader
}

// Register adds every tool to srv.
func Register(srv *mcp.Server, h *Handlers) {
	mcp.AddTool(srv, MetadataComputeCoverage, h.ComputeCoverage)
	mcp.AddTool(srv, MetadataRefreshSnapshot, h.RefreshSnapshot)
	mcp.AddTool(srv, MetadataListTiers, ListTiers)
}
