package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/jsonutil"
	"github.com/campuspulse/feedback-engine/pkg/models"
)

// metricKeys lists the five quality metrics in canonical order.
var metricKeys = []string{"urgency", "importance", "clarity", "quality", "helpfulness"}

// parseAnalysisResult validates the provider's feedback-analysis response.
// Partially malformed output is recovered in place: metrics outside [0, 1]
// are clamped, missing metrics fall back to neutral, and unknown enum values
// fall back to neutral defaults — each with a logged warning. Only a
// response without any locatable JSON object fails.
func parseAnalysisResult(content string, logger *zap.Logger) (*models.AnalysisResult, error) {
	jsonStr, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		// Valid JSON but not an object. Nothing to salvage.
		logger.Warn("analysis response is not a JSON object, returning indeterminate result")
		return models.EmptyAnalysisResult(), nil
	}

	result := models.EmptyAnalysisResult()

	result.Sentiment = parseSentiment(jsonutil.FlexibleStringValue(fields["sentiment"]), logger)
	result.Tone = parseTone(jsonutil.FlexibleStringValue(fields["tone"]), logger)

	metrics := map[string]*float64{
		"urgency":     &result.Metrics.Urgency,
		"importance":  &result.Metrics.Importance,
		"clarity":     &result.Metrics.Clarity,
		"quality":     &result.Metrics.Quality,
		"helpfulness": &result.Metrics.Helpfulness,
	}
	for _, key := range metricKeys {
		val, ok := jsonutil.FlexibleFloatValue(fields[key])
		if !ok {
			logger.Warn("analysis metric missing or unusable, defaulting to neutral",
				zap.String("metric", key))
			continue // target already holds the neutral default
		}
		*metrics[key] = clampMetric(key, val, logger)
	}

	result.ThemeLabel = strings.TrimSpace(jsonutil.FlexibleStringValue(fields["theme"]))

	return result, nil
}

// clampMetric forces a metric into [0, 1], logging a warning when the
// provider returned an out-of-range value.
func clampMetric(name string, val float64, logger *zap.Logger) float64 {
	if val < 0 || val > 1 {
		logger.Warn("analysis metric out of range, clamping",
			zap.String("metric", name),
			zap.Float64("value", val))
		if val < 0 {
			return 0
		}
		return 1
	}
	return val
}

// parseSentiment maps a raw sentiment value case-insensitively; unknown
// values fall back to neutral rather than failing the call.
func parseSentiment(raw string, logger *zap.Logger) models.Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return models.SentimentPositive
	case "negative":
		return models.SentimentNegative
	case "neutral":
		return models.SentimentNeutral
	case "mixed":
		return models.SentimentMixed
	default:
		if raw != "" {
			logger.Warn("unknown sentiment value, defaulting to neutral", zap.String("value", raw))
		}
		return models.SentimentNeutral
	}
}

// parseTone maps a raw tone value case-insensitively; unknown values fall
// back to neutral rather than failing the call.
func parseTone(raw string, logger *zap.Logger) models.Tone {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "appreciative":
		return models.ToneAppreciative
	case "satisfied":
		return models.ToneSatisfied
	case "neutral":
		return models.ToneNeutral
	case "concerned":
		return models.ToneConcerned
	case "frustrated":
		return models.ToneFrustrated
	case "angry":
		return models.ToneAngry
	default:
		if raw != "" {
			logger.Warn("unknown tone value, defaulting to neutral", zap.String("value", raw))
		}
		return models.ToneNeutral
	}
}

// parseTopicName validates a topic-name suggestion response. The prompt asks
// for {"name": "..."}, but a bare-text label is accepted as a fallback.
func parseTopicName(content string) (string, error) {
	if jsonStr, err := ExtractJSON(content); err == nil {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(jsonStr), &fields); err == nil {
			name := strings.TrimSpace(jsonutil.FlexibleStringValue(fields["name"]))
			if name != "" {
				return models.TruncateTopicName(name), nil
			}
		}
	}

	// Some models return the label as plain text despite the contract.
	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	line = strings.Trim(line, `"'`)
	if line == "" || strings.ContainsAny(line, "{}") {
		return "", fmt.Errorf("%w: no usable topic name", ErrMalformedResponse)
	}
	return models.TruncateTopicName(line), nil
}

// summaryWire is the JSON contract for executive summary responses.
type summaryWire struct {
	TopicLabels []string `json:"topic_labels"`
	Narrative   struct {
		Headline      json.RawMessage `json:"headline"`
		ResponseMix   json.RawMessage `json:"response_mix"`
		KeyTakeaways  json.RawMessage `json:"key_takeaways"`
		Risks         json.RawMessage `json:"risks"`
		Opportunities json.RawMessage `json:"opportunities"`
	} `json:"narrative"`
	Actions []struct {
		Action              json.RawMessage `json:"action"`
		Impact              json.RawMessage `json:"impact"`
		Challenges          json.RawMessage `json:"challenges"`
		SupportingResponses json.RawMessage `json:"supporting_responses"`
		Reasoning           json.RawMessage `json:"reasoning"`
	} `json:"actions"`
}

// parseSummary validates an executive summary response. Missing narrative
// keys become empty strings and unknown impact tiers fall back to medium;
// only a response without locatable JSON fails.
func parseSummary(content string, generatedAt time.Time, logger *zap.Logger) (*models.ExecutiveSummary, error) {
	wire, err := ParseJSONResponse[summaryWire](content)
	if err != nil {
		return nil, err
	}

	summary := &models.ExecutiveSummary{
		TopicLabels: wire.TopicLabels,
		Narrative: models.SummaryNarrative{
			Headline:      jsonutil.FlexibleStringValue(wire.Narrative.Headline),
			ResponseMix:   jsonutil.FlexibleStringValue(wire.Narrative.ResponseMix),
			KeyTakeaways:  jsonutil.FlexibleStringValue(wire.Narrative.KeyTakeaways),
			Risks:         jsonutil.FlexibleStringValue(wire.Narrative.Risks),
			Opportunities: jsonutil.FlexibleStringValue(wire.Narrative.Opportunities),
		},
		GeneratedAt: generatedAt,
	}
	if summary.TopicLabels == nil {
		summary.TopicLabels = []string{}
	}

	for _, a := range wire.Actions {
		action := strings.TrimSpace(jsonutil.FlexibleStringValue(a.Action))
		if action == "" {
			logger.Warn("summary action missing action text, dropping entry")
			continue
		}

		supporting := 0
		if v, ok := jsonutil.FlexibleFloatValue(a.SupportingResponses); ok && v > 0 {
			supporting = int(v)
		}

		summary.Actions = append(summary.Actions, models.SuggestedAction{
			Action:              action,
			Impact:              parseImpactTier(jsonutil.FlexibleStringValue(a.Impact), logger),
			Challenges:          jsonutil.FlexibleStringValue(a.Challenges),
			SupportingResponses: supporting,
			Reasoning:           jsonutil.FlexibleStringValue(a.Reasoning),
		})
	}
	if summary.Actions == nil {
		summary.Actions = []models.SuggestedAction{}
	}

	return summary, nil
}

// parseImpactTier maps a raw impact value case-insensitively; unknown values
// fall back to medium.
func parseImpactTier(raw string, logger *zap.Logger) models.ImpactTier {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return models.ImpactLow
	case "medium":
		return models.ImpactMedium
	case "high":
		return models.ImpactHigh
	default:
		if raw != "" {
			logger.Warn("unknown impact tier, defaulting to medium", zap.String("value", raw))
		}
		return models.ImpactMedium
	}
}
