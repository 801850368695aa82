package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/analysis"
	"github.com/campuspulse/feedback-engine/pkg/apperrors"
	"github.com/campuspulse/feedback-engine/pkg/config"
	"github.com/campuspulse/feedback-engine/pkg/logging"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
)

// claimBatchSize bounds how many pending items a worker inspects per pass.
const claimBatchSize = 10

// releaseTimeout bounds the cleanup write that returns an in-flight item to
// pending during shutdown, after the worker context is already canceled.
const releaseTimeout = 5 * time.Second

// SummaryNotifier receives a nudge whenever new analysis lands on a topic or
// inquiry, so summary freshness can be re-checked ahead of the periodic scan.
type SummaryNotifier interface {
	EnqueueTopicCheck(topicID uuid.UUID)
	EnqueueInquiryCheck(inquiryID uuid.UUID)
}

// AnalysisOrchestrator drives feedback items through the analysis lifecycle:
// claim a pending item, analyze it, resolve its topic, persist the result.
// A fixed pool of workers shares the pending queue; the claim itself is the
// concurrency control, so any number of orchestrator instances can run
// against the same database.
type AnalysisOrchestrator interface {
	// Start launches the worker pool. Workers exit when ctx is canceled;
	// call Wait to block until in-flight items are released.
	Start(ctx context.Context)

	// Wait blocks until all workers have exited.
	Wait()

	// EnqueueAnalysis re-enqueues one item for analysis and nudges an idle
	// worker. Pending and processing items are left alone; error items
	// always requeue; processed and reviewed items requeue only when force
	// is set.
	EnqueueAnalysis(ctx context.Context, id uuid.UUID, force bool) error

	// Sweep requeues items stuck in processing past the configured timeout
	// and reports how many were reset.
	Sweep(ctx context.Context) (int64, error)

	// RunSweepScheduler starts a background loop that sweeps on the given
	// interval. Cancel the context to stop it.
	RunSweepScheduler(ctx context.Context, interval time.Duration)
}

type analysisOrchestrator struct {
	repo      repositories.FeedbackRepository
	gateway   analysis.Gateway
	topics    TopicResolver
	summaries SummaryNotifier // may be nil
	cfg       *config.WorkersConfig
	logger    *zap.Logger

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewAnalysisOrchestrator creates a new AnalysisOrchestrator. summaries may
// be nil when summary generation is disabled.
func NewAnalysisOrchestrator(
	repo repositories.FeedbackRepository,
	gateway analysis.Gateway,
	topics TopicResolver,
	summaries SummaryNotifier,
	cfg *config.WorkersConfig,
	logger *zap.Logger,
) AnalysisOrchestrator {
	return &analysisOrchestrator{
		repo:      repo,
		gateway:   gateway,
		topics:    topics,
		summaries: summaries,
		cfg:       cfg,
		logger:    logger.Named("analysis-orchestrator"),
		wake:      make(chan struct{}, 1),
	}
}

var _ AnalysisOrchestrator = (*analysisOrchestrator)(nil)

func (o *analysisOrchestrator) Start(ctx context.Context) {
	o.logger.Info("Starting analysis workers",
		zap.Int("count", o.cfg.Count),
		zap.Duration("poll_interval", o.cfg.PollInterval))

	for i := 0; i < o.cfg.Count; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
}

func (o *analysisOrchestrator) Wait() {
	o.wg.Wait()
}

func (o *analysisOrchestrator) worker(ctx context.Context, n int) {
	defer o.wg.Done()
	logger := o.logger.With(zap.Int("worker", n))

	for {
		worked := o.drainPending(ctx, logger)
		if ctx.Err() != nil {
			logger.Debug("Analysis worker stopped")
			return
		}
		if worked {
			// More items may be waiting; go straight back for them.
			continue
		}

		select {
		case <-ctx.Done():
			logger.Debug("Analysis worker stopped")
			return
		case <-o.wake:
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

// drainPending claims and processes pending items until the queue looks
// empty. Returns true if at least one item was processed.
func (o *analysisOrchestrator) drainPending(ctx context.Context, logger *zap.Logger) bool {
	var worked bool
	for ctx.Err() == nil {
		items, err := o.repo.ListPending(ctx, claimBatchSize)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Failed to list pending feedback", zap.Error(err))
			}
			return worked
		}
		if len(items) == 0 {
			return worked
		}

		var claimedAny bool
		for _, item := range items {
			if ctx.Err() != nil {
				return worked
			}
			claimed, err := o.repo.Claim(ctx, item.ID)
			if errors.Is(err, apperrors.ErrAlreadyClaimed) {
				continue // another worker got it
			}
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("Failed to claim feedback item",
						zap.String("feedback_id", item.ID.String()),
						zap.Error(err))
				}
				continue
			}
			claimedAny = true
			worked = true
			o.processItem(ctx, logger, claimed)
		}
		if !claimedAny {
			// Everything listed was snatched by other workers.
			return worked
		}
	}
	return worked
}

// processItem runs one claimed item through analysis and persists the
// outcome. The item is guaranteed to leave processing: processed on success,
// error on failure, pending again on shutdown.
func (o *analysisOrchestrator) processItem(ctx context.Context, logger *zap.Logger, item *models.FeedbackItem) {
	result, err := o.gateway.AnalyzeFeedback(ctx, item.Body, item.IsLinked())
	if err != nil {
		o.handleFailure(ctx, logger, item, err)
		return
	}

	var topicID *uuid.UUID
	if !item.IsLinked() {
		topic, err := o.resolveTopic(ctx, item, result)
		if err != nil {
			o.handleFailure(ctx, logger, item, err)
			return
		}
		topicID = &topic.ID
	}

	if err := o.repo.SaveAnalysis(ctx, item.ID, result, topicID); err != nil {
		// The sweep may have requeued the item under us; its claim wins.
		logger.Warn("Failed to persist analysis",
			zap.String("feedback_id", item.ID.String()),
			zap.Error(err))
		return
	}

	logger.Info("Analyzed feedback item",
		zap.String("feedback_id", item.ID.String()),
		zap.String("sentiment", string(result.Sentiment)),
		zap.Float64("score", result.Metrics.Score()))

	if o.summaries != nil {
		if topicID != nil {
			o.summaries.EnqueueTopicCheck(*topicID)
		}
		if item.InquiryID != nil {
			o.summaries.EnqueueInquiryCheck(*item.InquiryID)
		}
	}
}

// resolveTopic maps general feedback onto a topic, preferring the theme the
// analysis already produced over a second provider call.
func (o *analysisOrchestrator) resolveTopic(ctx context.Context, item *models.FeedbackItem, result *models.AnalysisResult) (*models.Topic, error) {
	label := result.ThemeLabel
	if label == "" {
		suggested, err := o.gateway.SuggestTopicName(ctx, item.Body)
		if err != nil {
			return nil, err
		}
		label = suggested
	}
	return o.topics.ResolveOrCreate(ctx, label, item.UnitID)
}

func (o *analysisOrchestrator) handleFailure(ctx context.Context, logger *zap.Logger, item *models.FeedbackItem, cause error) {
	if ctx.Err() != nil {
		// Shutdown, not a data problem. Put the item back for the next run.
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := o.repo.Release(releaseCtx, item.ID); err != nil {
			logger.Warn("Failed to release feedback item on shutdown",
				zap.String("feedback_id", item.ID.String()),
				zap.Error(err))
		}
		return
	}

	message := logging.TruncateString(logging.SanitizeError(cause), 500)
	logger.Error("Feedback analysis failed",
		zap.String("feedback_id", item.ID.String()),
		zap.Bool("retryable", errors.Is(cause, analysis.ErrAnalysisUnavailable)),
		zap.String("error", message))

	if err := o.repo.MarkError(ctx, item.ID, message); err != nil {
		logger.Warn("Failed to mark feedback item errored",
			zap.String("feedback_id", item.ID.String()),
			zap.Error(err))
	}
}

func (o *analysisOrchestrator) EnqueueAnalysis(ctx context.Context, id uuid.UUID, force bool) error {
	if err := o.repo.Requeue(ctx, id, force); err != nil {
		return err
	}

	// Nudge one idle worker; drop the signal if all are busy, the poll
	// interval covers it.
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *analysisOrchestrator) Sweep(ctx context.Context) (int64, error) {
	now := time.Now()

	reset, err := o.repo.ResetStaleProcessing(ctx, now.Add(-o.cfg.ProcessingTimeout))
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		o.logger.Warn("Requeued stale processing items",
			zap.Int64("count", reset),
			zap.Duration("processing_timeout", o.cfg.ProcessingTimeout))
		select {
		case o.wake <- struct{}{}:
		default:
		}
	}

	stalePending, err := o.repo.CountStalePending(ctx, now.Add(-o.cfg.PendingStaleAfter))
	if err != nil {
		return reset, err
	}
	if stalePending > 0 {
		o.logger.Warn("Pending items are not being picked up",
			zap.Int64("count", stalePending),
			zap.Duration("pending_stale_after", o.cfg.PendingStaleAfter))
	}

	return reset, nil
}

// RunSweepScheduler starts a background loop that periodically requeues
// items stranded by crashed workers.
func (o *analysisOrchestrator) RunSweepScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		o.logger.Info("Staleness sweep started", zap.Duration("interval", interval))

		// Run immediately on startup, then at each interval
		if _, err := o.Sweep(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error("Staleness sweep failed", zap.Error(err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				o.logger.Info("Staleness sweep stopped")
				return
			case <-ticker.C:
				if _, err := o.Sweep(ctx); err != nil && ctx.Err() == nil {
					o.logger.Error("Staleness sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
