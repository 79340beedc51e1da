package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OrphanDeleter removes comments whose blog is gone.
type OrphanDeleter interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// OrphanSweeper 周期性清理失去所属文章的评论，作为删除事务之外的兜底。
type OrphanSweeper struct {
	cron     *cron.Cron
	comments OrphanDeleter
	logger   *zap.Logger
	timeout  time.Duration
	onSwept  func(removed int64)
}

// NewOrphanSweeper schedules the sweep with a cron expression such as "@every 1h".
func NewOrphanSweeper(schedule string, comments OrphanDeleter, logger *zap.Logger) (*OrphanSweeper, error) {
	s := &OrphanSweeper{
		cron:     cron.New(),
		comments: comments,
		logger:   loggerOrNop(logger),
		timeout:  30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid orphan sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// OnSwept registers a callback receiving the count removed by each successful pass.
func (s *OrphanSweeper) OnSwept(fn func(removed int64)) {
	s.onSwept = fn
}

// Start runs the scheduler in its own goroutine.
func (s *OrphanSweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to expire.
func (s *OrphanSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("orphan sweep still running at shutdown")
	}
}

// Sweep performs one cleanup pass.
func (s *OrphanSweeper) Sweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in orphan comment sweep", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.comments.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Error("orphan comment sweep failed", zap.Error(err))
		return
	}
	if s.onSwept != nil {
		s.onSwept(removed)
	}
	if removed > 0 {
		s.logger.Info("orphan comments removed", zap.Int64("count", removed))
	}
}
