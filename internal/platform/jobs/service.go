package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/domain/grants"
	"workforce/internal/platform/config"
)

const JobGrantExpiry = "grant_expiry"

// Service runs background work on a single worker goroutine. The only
// scheduled job sweeps grant lines whose carryover expiration has passed.
type Service struct {
	DB     *pgxpool.Pool
	Cfg    config.Config
	Grants *grants.Service
	queue  chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, grantsSvc *grants.Service) *Service {
	return &Service{
		DB:     db,
		Cfg:    cfg,
		Grants: grantsSvc,
		queue:  make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.GrantExpiryInterval > 0 {
		go s.scheduleExpiry(ctx, s.Cfg.GrantExpiryInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes the job synchronously, for operator-triggered runs.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// RunExpirySweep marks all persisted grant lines past their carryover
// expiration.
func (s *Service) RunExpirySweep(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobGrantExpiry, func(ctx context.Context) (any, error) {
		expired, err := s.Grants.ExpireLines(ctx, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		return map[string]any{"linesExpired": expired}, nil
	})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) scheduleExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobGrantExpiry, func(ctx context.Context) (any, error) {
				expired, err := s.Grants.ExpireLines(ctx, time.Now().UTC())
				if err != nil {
					return nil, err
				}
				return map[string]any{"linesExpired": expired}, nil
			})
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.createRun(ctx, j.Type)
	if err != nil {
		slog.Warn("job run record failed", "jobType", j.Type, "err", err)
	}

	result, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if runID != "" {
		details, _ := json.Marshal(map[string]any{"result": result, "error": errString(err)})
		if updateErr := s.finishRun(ctx, runID, status, details); updateErr != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", updateErr)
		}
	}
	return result, err
}

func (s *Service) createRun(ctx context.Context, jobType string) (string, error) {
	if s.DB == nil {
		return "", nil
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status) VALUES ($1, 'running') RETURNING id
  `, jobType).Scan(&id)
	return id, err
}

func (s *Service) finishRun(ctx context.Context, runID, status string, details []byte) error {
	if s.DB == nil {
		return nil
	}
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs SET status = $1, details_json = $2, finished_at = now() WHERE id = $3
  `, status, details, runID)
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
