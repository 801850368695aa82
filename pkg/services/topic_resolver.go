package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/apperrors"
	"github.com/campuspulse/feedback-engine/pkg/config"
	"github.com/campuspulse/feedback-engine/pkg/models"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
)

// Similarity blend weights. Edit distance dominates because suggested labels
// are short; token overlap catches word reorderings edit distance punishes.
const (
	editDistanceWeight = 0.7
	tokenOverlapWeight = 0.3
)

// TopicResolver maps a model-suggested topic label onto an existing topic or
// creates a new one. Matching is fuzzy so near-duplicate labels ("Library
// WiFi Connectivity Issues" vs "Library Wi-Fi Connectivity Issue") converge
// on a single topic.
type TopicResolver interface {
	// ResolveOrCreate returns the topic a suggested label belongs to,
	// creating it when no existing topic within the unit's scope is
	// similar enough.
	ResolveOrCreate(ctx context.Context, suggested string, unitID *uuid.UUID) (*models.Topic, error)
}

type topicResolver struct {
	repo   repositories.TopicRepository
	cfg    *config.TopicsConfig
	logger *zap.Logger
}

// NewTopicResolver creates a new TopicResolver.
func NewTopicResolver(repo repositories.TopicRepository, cfg *config.TopicsConfig, logger *zap.Logger) TopicResolver {
	return &topicResolver{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("topic-resolver"),
	}
}

var _ TopicResolver = (*topicResolver)(nil)

func (r *topicResolver) ResolveOrCreate(ctx context.Context, suggested string, unitID *uuid.UUID) (*models.Topic, error) {
	name := models.TruncateTopicName(strings.TrimSpace(suggested))
	if name == "" {
		return nil, fmt.Errorf("empty topic suggestion")
	}

	// Exact case-insensitive match short-circuits the similarity scan.
	if topic, err := r.repo.GetByName(ctx, name, unitID); err == nil {
		return topic, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	candidates, err := r.repo.ListCandidates(ctx, unitID)
	if err != nil {
		return nil, err
	}

	if best, score := bestMatch(name, candidates); best != nil && score >= r.cfg.SimilarityThreshold {
		r.logger.Debug("Resolved suggestion to existing topic",
			zap.String("suggested", name),
			zap.String("topic", best.Name),
			zap.Float64("score", score))
		return best, nil
	}

	topic := &models.Topic{Name: name, UnitID: unitID}
	err = r.repo.Create(ctx, topic)
	if err == nil {
		r.logger.Info("Created topic",
			zap.String("name", name),
			zap.String("topic_id", topic.ID.String()))
		return topic, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}

	// A concurrent worker created the same name between our scan and our
	// insert. Its row wins.
	topic, getErr := r.repo.GetByName(ctx, name, unitID)
	if getErr != nil {
		return nil, fmt.Errorf("topic created concurrently but not found: %w", getErr)
	}
	return topic, nil
}

func bestMatch(name string, candidates []*models.Topic) (*models.Topic, float64) {
	var best *models.Topic
	var bestScore float64
	for _, candidate := range candidates {
		score := TopicSimilarity(name, candidate.Name)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}

// TopicSimilarity computes the blended similarity of two topic labels:
// a normalized edit-distance score weighted with token-set overlap. Both
// labels are lowercased, stripped of punctuation and singularized first, so
// "Issues" matches "Issue" and "Wi-Fi" scores close to "WiFi". Returns a
// value in [0, 1].
func TopicSimilarity(a, b string) float64 {
	tokensA := normalizeTokens(a)
	tokensB := normalizeTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	normA := strings.Join(tokensA, " ")
	normB := strings.Join(tokensB, " ")
	if normA == normB {
		return 1
	}

	return editDistanceWeight*editSimilarity(normA, normB) +
		tokenOverlapWeight*tokenOverlap(tokensA, tokensB)
}

// normalizeTokens lowercases a label, drops everything but letters and
// digits, and singularizes each remaining token.
func normalizeTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, inflection.Singular(f))
	}
	return tokens
}

func editSimilarity(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// tokenOverlap is the fraction of shared tokens relative to the larger of
// the two token sets.
func tokenOverlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	var common int
	for t := range setA {
		if _, ok := setB[t]; ok {
			common++
		}
	}
	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	if larger == 0 {
		return 0
	}
	return float64(common) / float64(larger)
}
