package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

const defaultOutboxRetention = 7 * 24 * time.Hour

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedPruner
	// DLQ is optional. When set, dead letters inside the window are reported.
	DLQ       dlqCounter
	Retention time.Duration
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqCounter interface {
	CountByReasonSince(ctx context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error)
}

// retentionJob prunes published order events. Pending rows belong to the
// publisher and dead letters are kept for operators.
type retentionJob struct {
	logg   *logger.Logger
	pruner publishedPruner
	dlq    dlqCounter
	window time.Duration
	now    func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger is nil")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository is nil")
	}
	window := params.Retention
	if window <= 0 {
		window = defaultOutboxRetention
	}
	return &retentionJob{
		logg:   params.Logger,
		pruner: params.Repository,
		dlq:    params.DLQ,
		window: window,
		now:    time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return "outbox-retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"retention": j.window.String(),
	})

	pruned, err := j.pruner.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune published events: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", pruned), "pruned published order events")

	if j.dlq != nil {
		return j.reportDeadLetters(ctx, cutoff)
	}
	return nil
}

func (j *retentionJob) reportDeadLetters(ctx context.Context, since time.Time) error {
	byReason, err := j.dlq.CountByReasonSince(ctx, since)
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}
	fields := map[string]any{}
	var total int64
	for reason, n := range byReason {
		fields["dlq_"+string(reason)] = n
		total += n
	}
	if total == 0 {
		return nil
	}
	fields["dlq_total"] = total
	j.logg.Warn(j.logg.WithFields(ctx, fields), "order events were dead-lettered inside the retention window")
	return nil
}
