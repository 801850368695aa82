package models

// AnalysisResult is the validated output of one feedback-analysis call.
// The gateway guarantees every field is populated: enum fields fall back to
// neutral and metrics are clamped into [0, 1], so a result is always safe to
// persist as a complete, atomic analysis.
type AnalysisResult struct {
	Sentiment Sentiment      `json:"sentiment"`
	Tone      Tone           `json:"tone"`
	Metrics   QualityMetrics `json:"metrics"`

	// ThemeLabel is the model's short topic suggestion for unlinked
	// feedback. Empty for inquiry-linked feedback.
	ThemeLabel string `json:"theme_label,omitempty"`
}

// neutralMetric is the stand-in value for a metric the model failed to
// provide in a usable form.
const neutralMetric = 0.5

// EmptyAnalysisResult returns the sentinel all-neutral result produced when
// validation cannot salvage anything from a provider response. It is a real,
// persistable analysis — callers distinguish "analyzed but uncertain" (this
// value, metrics populated) from "not yet analyzed" (nil metrics on the item).
func EmptyAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Sentiment: SentimentNeutral,
		Tone:      ToneNeutral,
		Metrics: QualityMetrics{
			Urgency:     neutralMetric,
			Importance:  neutralMetric,
			Clarity:     neutralMetric,
			Quality:     neutralMetric,
			Helpfulness: neutralMetric,
		},
	}
}

// Indeterminate reports whether the result equals the all-neutral sentinel,
// meaning the provider response carried no usable signal.
func (r *AnalysisResult) Indeterminate() bool {
	empty := EmptyAnalysisResult()
	return r.Sentiment == empty.Sentiment &&
		r.Tone == empty.Tone &&
		r.Metrics == empty.Metrics
}
