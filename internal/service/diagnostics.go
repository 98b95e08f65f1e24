package service

import (
	"context"
	"fmt"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/repo"
	"time"

	"github.com/rs/zerolog"
)

const pingTimeout = 2 * time.Second

// backlogReporter is implemented by queues that can report how many jobs wait.
type backlogReporter interface {
	Backlog(ctx context.Context) (int64, error)
}

type DiagnosticsService struct {
	diagnosticsRepo repo.Diagnostics
	queue           ExtractionQueue
	log             zerolog.Logger
}

func NewDiagnosticsService(deps Dependencies) *DiagnosticsService {
	return &DiagnosticsService{
		diagnosticsRepo: deps.Repos.Diagnostics,
		queue:           deps.Queue,
		log:             logger.Get().With().Str("component", "diagnostics").Logger(),
	}
}

// Ping checks the database and, when extraction runs in the background, the job queue.
func (s *DiagnosticsService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.diagnosticsRepo.Ping(ctx); err != nil {
		return fmt.Errorf("database is unreachable: %w", err)
	}

	reporter, ok := s.queue.(backlogReporter)
	if !ok {
		return nil
	}
	backlog, err := reporter.Backlog(ctx)
	if err != nil {
		return fmt.Errorf("extraction queue is unreachable: %w", err)
	}
	s.log.Debug().Int64("backlog", backlog).Msg("Extraction queue reachable")

	return nil
}
