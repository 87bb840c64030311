// ABOUTME: MCP server setup for the runlog tracker.
// ABOUTME: Exposes run logging and analytics tools to AI agents over stdio.
package mcp

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/harperreed/runlog/internal/logging"
	"github.com/harperreed/runlog/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported in the MCP implementation info.
const Version = "1.0.0"

// Server wraps the MCP server with tracker access for one user.
type Server struct {
	mcpServer *mcp.Server
	tracker   *tracker.Tracker
	userID    string
	logger    *log.Logger
}

// NewServer creates a new MCP server acting as userID.
func NewServer(tr *tracker.Tracker, userID string, logger *log.Logger) (*Server, error) {
	if tr == nil {
		return nil, errors.New("tracker is required")
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "runlog",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		tracker:   tr,
		userID:    userID,
		logger:    logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio", "user", s.userID)
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
