package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuspulse/feedback-engine/pkg/analysis"
	"github.com/campuspulse/feedback-engine/pkg/apperrors"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
)

// memFeedbackRepo is an in-memory FeedbackRepository that mirrors the real
// compare-and-swap transition semantics, so orchestrator tests exercise the
// same state machine the database enforces.
type memFeedbackRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.FeedbackItem

	markErrorCalls int
	releaseCalls   int
	saveCalls      int
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{items: make(map[uuid.UUID]*models.FeedbackItem)}
}

var _ repositories.FeedbackRepository = (*memFeedbackRepo)(nil)

func (m *memFeedbackRepo) add(item *models.FeedbackItem) *models.FeedbackItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = models.FeedbackStatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	m.items[item.ID] = item
	return item
}

func (m *memFeedbackRepo) get(id uuid.UUID) *models.FeedbackItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func clone(item *models.FeedbackItem) *models.FeedbackItem {
	c := *item
	return &c
}

func (m *memFeedbackRepo) Create(_ context.Context, item *models.FeedbackItem) error {
	m.add(item)
	return nil
}

func (m *memFeedbackRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FeedbackItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(item), nil
}

func (m *memFeedbackRepo) ListPending(_ context.Context, limit int) ([]*models.FeedbackItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := make([]*models.FeedbackItem, 0)
	for _, item := range m.items {
		if item.Status == models.FeedbackStatusPending {
			pending = append(pending, clone(item))
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (m *memFeedbackRepo) Claim(_ context.Context, id uuid.UUID) (*models.FeedbackItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != models.FeedbackStatusPending {
		return nil, apperrors.ErrAlreadyClaimed
	}
	now := time.Now()
	item.Status = models.FeedbackStatusProcessing
	item.ClaimedAt = &now
	return clone(item), nil
}

func (m *memFeedbackRepo) SaveAnalysis(_ context.Context, id uuid.UUID, result *models.AnalysisResult, topicID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	item, ok := m.items[id]
	if !ok || item.Status != models.FeedbackStatusProcessing {
		return apperrors.ErrInvalidStatus
	}
	now := time.Now()
	score := result.Metrics.Score()
	severity := models.SeverityForScore(score)
	metrics := result.Metrics
	item.Status = models.FeedbackStatusProcessed
	item.Sentiment = &result.Sentiment
	item.Tone = &result.Tone
	item.Metrics = &metrics
	item.Score = &score
	item.Severity = &severity
	if topicID != nil {
		item.TopicID = topicID
	}
	item.LastError = ""
	item.AnalyzedAt = &now
	return nil
}

func (m *memFeedbackRepo) MarkError(_ context.Context, id uuid.UUID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markErrorCalls++
	item, ok := m.items[id]
	if !ok || item.Status != models.FeedbackStatusProcessing {
		return apperrors.ErrInvalidStatus
	}
	item.Status = models.FeedbackStatusError
	item.LastError = lastError
	return nil
}

func (m *memFeedbackRepo) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	item, ok := m.items[id]
	if !ok || item.Status != models.FeedbackStatusProcessing {
		return apperrors.ErrInvalidStatus
	}
	item.Status = models.FeedbackStatusPending
	item.ClaimedAt = nil
	return nil
}

func (m *memFeedbackRepo) Requeue(_ context.Context, id uuid.UUID, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	switch item.Status {
	case models.FeedbackStatusError:
	case models.FeedbackStatusProcessed, models.FeedbackStatusReviewed:
		if !force {
			return nil
		}
	default:
		return nil
	}
	item.Status = models.FeedbackStatusPending
	item.LastError = ""
	item.ClaimedAt = nil
	return nil
}

func (m *memFeedbackRepo) ResetStaleProcessing(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reset int64
	for _, item := range m.items {
		if item.Status == models.FeedbackStatusProcessing && item.ClaimedAt != nil && item.ClaimedAt.Before(cutoff) {
			item.Status = models.FeedbackStatusPending
			item.ClaimedAt = nil
			reset++
		}
	}
	return reset, nil
}

func (m *memFeedbackRepo) CountStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, item := range m.items {
		if item.Status == models.FeedbackStatusPending && item.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *memFeedbackRepo) AnalyzedStatsByTopic(_ context.Context, topicID uuid.UUID) (int64, *time.Time, error) {
	return m.analyzedStats(func(item *models.FeedbackItem) bool {
		return item.TopicID != nil && *item.TopicID == topicID
	})
}

func (m *memFeedbackRepo) AnalyzedStatsByInquiry(_ context.Context, inquiryID uuid.UUID) (int64, *time.Time, error) {
	return m.analyzedStats(func(item *models.FeedbackItem) bool {
		return item.InquiryID != nil && *item.InquiryID == inquiryID
	})
}

func (m *memFeedbackRepo) analyzedStats(match func(*models.FeedbackItem) bool) (int64, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	var newest *time.Time
	for _, item := range m.items {
		if item.Status != models.FeedbackStatusProcessed && item.Status != models.FeedbackStatusReviewed {
			continue
		}
		if !match(item) {
			continue
		}
		count++
		if item.AnalyzedAt != nil && (newest == nil || item.AnalyzedAt.After(*newest)) {
			ts := *item.AnalyzedAt
			newest = &ts
		}
	}
	return count, newest, nil
}

func (m *memFeedbackRepo) ListAnalyzedByTopic(_ context.Context, topicID uuid.UUID, limit int) ([]*models.FeedbackItem, error) {
	return m.listAnalyzed(func(item *models.FeedbackItem) bool {
		return item.TopicID != nil && *item.TopicID == topicID
	}, limit)
}

func (m *memFeedbackRepo) ListAnalyzedByInquiry(_ context.Context, inquiryID uuid.UUID, limit int) ([]*models.FeedbackItem, error) {
	return m.listAnalyzed(func(item *models.FeedbackItem) bool {
		return item.InquiryID != nil && *item.InquiryID == inquiryID
	}, limit)
}

func (m *memFeedbackRepo) listAnalyzed(match func(*models.FeedbackItem) bool, limit int) ([]*models.FeedbackItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*models.FeedbackItem, 0)
	for _, item := range m.items {
		if item.Status != models.FeedbackStatusProcessed && item.Status != models.FeedbackStatusReviewed {
			continue
		}
		if !match(item) {
			continue
		}
		items = append(items, clone(item))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// memTopicRepo is an in-memory TopicRepository.
type memTopicRepo struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*models.Topic

	// onCreate, when set, runs once at the start of the next Create call,
	// before the uniqueness check. Used to simulate a concurrent insert.
	onCreate func()

	setSummaryCalls int
}

func newMemTopicRepo() *memTopicRepo {
	return &memTopicRepo{topics: make(map[uuid.UUID]*models.Topic)}
}

var _ repositories.TopicRepository = (*memTopicRepo)(nil)

func scopeEqual(a, b *uuid.UUID) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func (m *memTopicRepo) add(topic *models.Topic) *models.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	if topic.ID == uuid.Nil {
		topic.ID = uuid.New()
	}
	m.topics[topic.ID] = topic
	return topic
}

func (m *memTopicRepo) Create(_ context.Context, topic *models.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCreate != nil {
		hook := m.onCreate
		m.onCreate = nil
		hook()
	}
	for _, existing := range m.topics {
		if !existing.Archived && strings.EqualFold(existing.Name, topic.Name) && scopeEqual(existing.UnitID, topic.UnitID) {
			return apperrors.ErrConflict
		}
	}
	if topic.ID == uuid.Nil {
		topic.ID = uuid.New()
	}
	topic.CreatedAt = time.Now()
	m.topics[topic.ID] = topic
	return nil
}

func (m *memTopicRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *topic
	return &c, nil
}

func (m *memTopicRepo) GetByName(_ context.Context, name string, unitID *uuid.UUID) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, topic := range m.topics {
		if !topic.Archived && strings.EqualFold(topic.Name, name) && scopeEqual(topic.UnitID, unitID) {
			c := *topic
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memTopicRepo) ListCandidates(_ context.Context, unitID *uuid.UUID) ([]*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidates := make([]*models.Topic, 0)
	for _, topic := range m.topics {
		if topic.Archived {
			continue
		}
		if topic.UnitID == nil || scopeEqual(topic.UnitID, unitID) {
			c := *topic
			candidates = append(candidates, &c)
		}
	}
	return candidates, nil
}

func (m *memTopicRepo) ListUnarchived(_ context.Context) ([]*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]*models.Topic, 0)
	for _, topic := range m.topics {
		if !topic.Archived {
			c := *topic
			topics = append(topics, &c)
		}
	}
	return topics, nil
}

func (m *memTopicRepo) SetSummary(_ context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setSummaryCalls++
	topic, ok := m.topics[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	topic.Summary = summary
	ts := generatedAt
	topic.SummaryGeneratedAt = &ts
	return nil
}

func (m *memTopicRepo) SetArchived(_ context.Context, id uuid.UUID, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	topic.Archived = archived
	return nil
}

// memInquiryRepo is an in-memory InquiryRepository.
type memInquiryRepo struct {
	mu        sync.Mutex
	inquiries map[uuid.UUID]*models.Inquiry

	setSummaryCalls int
}

func newMemInquiryRepo() *memInquiryRepo {
	return &memInquiryRepo{inquiries: make(map[uuid.UUID]*models.Inquiry)}
}

var _ repositories.InquiryRepository = (*memInquiryRepo)(nil)

func (m *memInquiryRepo) add(inquiry *models.Inquiry) *models.Inquiry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	if inquiry.Status == "" {
		inquiry.Status = models.InquiryStatusActive
	}
	m.inquiries[inquiry.ID] = inquiry
	return inquiry
}

func (m *memInquiryRepo) Create(_ context.Context, inquiry *models.Inquiry) error {
	m.add(inquiry)
	return nil
}

func (m *memInquiryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Inquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inquiry, ok := m.inquiries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *inquiry
	return &c, nil
}

func (m *memInquiryRepo) ListActive(_ context.Context) ([]*models.Inquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make([]*models.Inquiry, 0)
	for _, inquiry := range m.inquiries {
		if inquiry.Status == models.InquiryStatusActive {
			c := *inquiry
			active = append(active, &c)
		}
	}
	return active, nil
}

func (m *memInquiryRepo) SetSummary(_ context.Context, id uuid.UUID, summary *models.ExecutiveSummary, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setSummaryCalls++
	inquiry, ok := m.inquiries[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	inquiry.Summary = summary
	ts := generatedAt
	inquiry.SummaryGeneratedAt = &ts
	return nil
}

func (m *memInquiryRepo) SetStatus(_ context.Context, id uuid.UUID, status models.InquiryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inquiry, ok := m.inquiries[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	inquiry.Status = status
	return nil
}

// mockGateway implements analysis.Gateway with function fields.
type mockGateway struct {
	mu sync.Mutex

	AnalyzeFunc func(ctx context.Context, body string, linked bool) (*models.AnalysisResult, error)
	SuggestFunc func(ctx context.Context, body string) (string, error)
	SummaryFunc func(ctx context.Context, req analysis.SummaryRequest) (*models.ExecutiveSummary, error)

	analyzeCalls int
	suggestCalls int
	summaryCalls int
	lastSummary  analysis.SummaryRequest
}

var _ analysis.Gateway = (*mockGateway)(nil)

func (m *mockGateway) AnalyzeFeedback(ctx context.Context, body string, linked bool) (*models.AnalysisResult, error) {
	m.mu.Lock()
	m.analyzeCalls++
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, body, linked)
	}
	return models.EmptyAnalysisResult(), nil
}

func (m *mockGateway) SuggestTopicName(ctx context.Context, body string) (string, error) {
	m.mu.Lock()
	m.suggestCalls++
	m.mu.Unlock()
	if m.SuggestFunc != nil {
		return m.SuggestFunc(ctx, body)
	}
	return "General Feedback", nil
}

func (m *mockGateway) GenerateSummary(ctx context.Context, req analysis.SummaryRequest) (*models.ExecutiveSummary, error) {
	m.mu.Lock()
	m.summaryCalls++
	m.lastSummary = req
	m.mu.Unlock()
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, req)
	}
	return &models.ExecutiveSummary{
		TopicLabels: []string{},
		Actions:     []models.SuggestedAction{},
		GeneratedAt: time.Now(),
	}, nil
}
