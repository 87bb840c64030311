// ABOUTME: MCP resource implementations for runlog.
// ABOUTME: Provides runlog://recent and runlog://summary resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/runlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	recentURI  = "runlog://recent"
	summaryURI = "runlog://summary"
)

func (s *Server) registerResources() {
	// runlog://recent - Last 10 runs
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         recentURI,
		Name:        "Recent Runs",
		Description: "The 10 most recent runs",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	// runlog://summary - Dashboard
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "Running Summary Dashboard",
		Description: "Week/month/year totals, records, streak, predictions, zones and shoes",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

// Resource handlers

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	runs, err := s.tracker.ListRuns(ctx, s.userID, storage.RunFilter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return jsonResource(recentURI, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	dash, err := s.tracker.Dashboard(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	return jsonResource(summaryURI, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"dashboard":    dash,
	})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
