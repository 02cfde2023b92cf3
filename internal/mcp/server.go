// Package mcp exposes the stage tracking engine and ATS operations as MCP
// tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/talentops/stagetrack/internal/metrics"
	"github.com/talentops/stagetrack/internal/models"
	"github.com/talentops/stagetrack/internal/utils"
)

const (
	serverName    = "stagetrack"
	serverVersion = "1.0.0"
)

// StageEngine is the correlation engine surface the stage tools consume.
type StageEngine interface {
	ListTransitionsInWindow(ctx context.Context, stageName string, year, month int) ([]models.StageTransition, error)
	CountTransitionsInWindow(ctx context.Context, stageName string, year, month int) (int, error)
	ListCurrentlyInStage(ctx context.Context, stageName string, page, pageSize int) (models.SearchPage, error)
	CountCurrentlyInStage(ctx context.Context, stageName string) (int, error)
}

// DirectoryClient is the ATS surface the candidate and candidature tools
// consume.
type DirectoryClient interface {
	SearchCandidate(ctx context.Context, term string) (models.Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (models.Candidate, error)
	CandidateProfileByEmail(ctx context.Context, email string) (models.CandidateProfile, error)
	SetCandidateDiscordID(ctx context.Context, candidateID, discordID string) error
	SetCandidateSubscription(ctx context.Context, candidateID string, subscriber bool) error
	SetCandidateStage(ctx context.Context, email, stageName string) error
	FindActiveCandidaturesByEmail(ctx context.Context, email string) ([]models.CandidatureSummary, error)
	DisqualifyCandidature(ctx context.Context, candidatureID, reason string) error
	DisqualifyActiveByEmail(ctx context.Context, email, reason string) (models.DisqualifyResult, error)
	FetchCandidature(ctx context.Context, id string) (models.Candidature, error)
	SearchSubscribers(ctx context.Context, subscriber bool, activityStatus string, page, pageSize int) (models.CandidateSearchPage, error)
	SearchCandidatesByLocation(ctx context.Context, filter models.LocationFilter, page, pageSize int) (models.CandidateSearchPage, error)
	CandidateCount(ctx context.Context, filter models.LocationFilter) (int, error)
	CustomFieldDefinitions(ctx context.Context) (json.RawMessage, error)
}

// Lookups carries the department and location name-to-ID maps exposed by the
// mappings tool.
type Lookups struct {
	Departments map[string]string
	Locations   map[string]string
}

// Server hosts the MCP server and its tool handlers.
type Server struct {
	logger    *slog.Logger
	mcpServer *mcp.Server
	latencies *utils.LatencyTracker
}

// New constructs the MCP server and registers every tool.
func New(logger *slog.Logger, eng StageEngine, client DirectoryClient, lookups Lookups) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:    logger,
		latencies: utils.NewLatencyTracker(1024),
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	registerStageTools(s, eng)
	registerCandidateTools(s, client)
	registerUtilityTools(s, client, lookups)

	return s
}

// Serve runs the MCP server on stdio until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	err := s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ServeHTTP runs the MCP server on the streamable HTTP transport at addr
// until the context ends, then shuts the listener down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, addr string, gracefulTimeout time.Duration) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown MCP HTTP server: %w", err)
	}
	return nil
}

// observe records the duration and outcome of one tool call and periodically
// logs the p95.
func (s *Server) observe(operation string, start time.Time, err error) {
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		s.logger.Error("tool call failed", slog.String("tool", operation), slog.Any("error", err))
	}
	metrics.ObserveQuery(operation, duration, outcome)

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("tool latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count),
		)
	}
}
