package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/analysis"
	"github.com/campuspulse/feedback-engine/pkg/config"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
)

// checkQueueSize bounds pending nudges from the orchestrator. Overflowing
// nudges are dropped; the periodic scan picks those aggregates up anyway.
const checkQueueSize = 64

// SummaryScheduler keeps cached executive summaries fresh. A summary is
// (re)generated once an aggregate has enough analyzed contributions and at
// least one of them is newer than the cached summary. Generation failures
// leave the prior summary in place.
type SummaryScheduler interface {
	SummaryNotifier

	// RefreshTopicSummary regenerates one topic's summary if it is due.
	// Returns true when a new summary was persisted.
	RefreshTopicSummary(ctx context.Context, topicID uuid.UUID) (bool, error)

	// RefreshInquirySummary is RefreshTopicSummary for inquiries.
	RefreshInquirySummary(ctx context.Context, inquiryID uuid.UUID) (bool, error)

	// CheckAll scans every unarchived topic and active inquiry once.
	CheckAll(ctx context.Context)

	// RunScheduler starts a background loop that runs CheckAll on the
	// given interval and serves orchestrator nudges between scans.
	// Cancel the context to stop it.
	RunScheduler(ctx context.Context, interval time.Duration)
}

type summaryScheduler struct {
	feedback  repositories.FeedbackRepository
	topics    repositories.TopicRepository
	inquiries repositories.InquiryRepository
	gateway   analysis.Gateway
	cfg       *config.SummariesConfig
	logger    *zap.Logger

	topicChecks   chan uuid.UUID
	inquiryChecks chan uuid.UUID
}

// NewSummaryScheduler creates a new SummaryScheduler.
func NewSummaryScheduler(
	feedback repositories.FeedbackRepository,
	topics repositories.TopicRepository,
	inquiries repositories.InquiryRepository,
	gateway analysis.Gateway,
	cfg *config.SummariesConfig,
	logger *zap.Logger,
) SummaryScheduler {
	return &summaryScheduler{
		feedback:      feedback,
		topics:        topics,
		inquiries:     inquiries,
		gateway:       gateway,
		cfg:           cfg,
		logger:        logger.Named("summary-scheduler"),
		topicChecks:   make(chan uuid.UUID, checkQueueSize),
		inquiryChecks: make(chan uuid.UUID, checkQueueSize),
	}
}

var _ SummaryScheduler = (*summaryScheduler)(nil)

func (s *summaryScheduler) EnqueueTopicCheck(topicID uuid.UUID) {
	select {
	case s.topicChecks <- topicID:
	default:
	}
}

func (s *summaryScheduler) EnqueueInquiryCheck(inquiryID uuid.UUID) {
	select {
	case s.inquiryChecks <- inquiryID:
	default:
	}
}

func (s *summaryScheduler) RefreshTopicSummary(ctx context.Context, topicID uuid.UUID) (bool, error) {
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		return false, err
	}
	if topic.Archived {
		return false, nil
	}

	count, newest, err := s.feedback.AnalyzedStatsByTopic(ctx, topicID)
	if err != nil {
		return false, err
	}
	if !s.refreshDue(count, newest, topic.SummaryGeneratedAt) {
		return false, nil
	}

	items, err := s.feedback.ListAnalyzedByTopic(ctx, topicID, s.cfg.SampleCap)
	if err != nil {
		return false, err
	}

	summary, err := s.generate(ctx, topic.Name, count, *newest, items)
	if err != nil {
		// The prior summary, if any, stays in place.
		s.logger.Warn("Topic summary generation failed",
			zap.String("topic_id", topicID.String()),
			zap.Error(err))
		return false, err
	}

	if err := s.topics.SetSummary(ctx, topicID, summary, summary.GeneratedAt); err != nil {
		return false, err
	}

	s.logger.Info("Refreshed topic summary",
		zap.String("topic_id", topicID.String()),
		zap.String("topic", topic.Name),
		zap.Int64("contributions", count))
	return true, nil
}

func (s *summaryScheduler) RefreshInquirySummary(ctx context.Context, inquiryID uuid.UUID) (bool, error) {
	inquiry, err := s.inquiries.GetByID(ctx, inquiryID)
	if err != nil {
		return false, err
	}

	count, newest, err := s.feedback.AnalyzedStatsByInquiry(ctx, inquiryID)
	if err != nil {
		return false, err
	}
	if !s.refreshDue(count, newest, inquiry.SummaryGeneratedAt) {
		return false, nil
	}

	items, err := s.feedback.ListAnalyzedByInquiry(ctx, inquiryID, s.cfg.SampleCap)
	if err != nil {
		return false, err
	}

	summary, err := s.generate(ctx, inquiry.Subject, count, *newest, items)
	if err != nil {
		s.logger.Warn("Inquiry summary generation failed",
			zap.String("inquiry_id", inquiryID.String()),
			zap.Error(err))
		return false, err
	}

	if err := s.inquiries.SetSummary(ctx, inquiryID, summary, summary.GeneratedAt); err != nil {
		return false, err
	}

	s.logger.Info("Refreshed inquiry summary",
		zap.String("inquiry_id", inquiryID.String()),
		zap.Int64("contributions", count))
	return true, nil
}

// refreshDue decides whether a summary should be (re)generated: enough
// contributions, and the cached summary (if any) predates the newest
// analysis.
func (s *summaryScheduler) refreshDue(count int64, newest *time.Time, generatedAt *time.Time) bool {
	if count < int64(s.cfg.MinContributions) || newest == nil {
		return false
	}
	if generatedAt == nil {
		return true
	}
	return newest.After(*generatedAt)
}

func (s *summaryScheduler) generate(ctx context.Context, subject string, count int64, newest time.Time, items []*models.FeedbackItem) (*models.ExecutiveSummary, error) {
	bodies := make([]string, 0, len(items))
	sentiments := make(map[models.Sentiment]int)
	for _, item := range items {
		bodies = append(bodies, item.Body)
		if item.Sentiment != nil {
			sentiments[*item.Sentiment]++
		}
	}

	return s.gateway.GenerateSummary(ctx, analysis.SummaryRequest{
		Subject:            subject,
		Bodies:             bodies,
		SentimentCounts:    sentiments,
		ContributorCount:   int(count),
		NewestContribution: newest,
	})
}

func (s *summaryScheduler) CheckAll(ctx context.Context) {
	topics, err := s.topics.ListUnarchived(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Summary scan: failed to list topics", zap.Error(err))
		}
		return
	}
	for _, topic := range topics {
		if ctx.Err() != nil {
			return
		}
		// Errors are already logged per aggregate; the scan keeps going.
		_, _ = s.RefreshTopicSummary(ctx, topic.ID)
	}

	inquiries, err := s.inquiries.ListActive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Summary scan: failed to list inquiries", zap.Error(err))
		}
		return
	}
	for _, inquiry := range inquiries {
		if ctx.Err() != nil {
			return
		}
		_, _ = s.RefreshInquirySummary(ctx, inquiry.ID)
	}
}

// RunScheduler starts the background refresh loop.
func (s *summaryScheduler) RunScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		s.logger.Info("Summary scheduler started",
			zap.Duration("interval", interval),
			zap.Int("min_contributions", s.cfg.MinContributions),
			zap.Int("sample_cap", s.cfg.SampleCap))

		// Run immediately on startup, then at each interval
		s.CheckAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Summary scheduler stopped")
				return
			case <-ticker.C:
				s.CheckAll(ctx)
			case topicID := <-s.topicChecks:
				_, _ = s.RefreshTopicSummary(ctx, topicID)
			case inquiryID := <-s.inquiryChecks:
				_, _ = s.RefreshInquirySummary(ctx, inquiryID)
			}
		}
	}()
}
