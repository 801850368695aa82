package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTopicName(t *testing.T) {
	short := "Library WiFi Connectivity Issues"
	assert.Equal(t, short, TruncateTopicName(short))

	exact := strings.Repeat("a", MaxTopicNameLength)
	assert.Equal(t, exact, TruncateTopicName(exact))

	long := strings.Repeat("b", MaxTopicNameLength+20)
	got := TruncateTopicName(long)
	assert.Len(t, got, MaxTopicNameLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestEmptyAnalysisResult_Indeterminate(t *testing.T) {
	empty := EmptyAnalysisResult()
	assert.True(t, empty.Indeterminate())

	r := EmptyAnalysisResult()
	r.Sentiment = SentimentNegative
	assert.False(t, r.Indeterminate())

	r = EmptyAnalysisResult()
	r.Metrics.Urgency = 0.9
	assert.False(t, r.Indeterminate())
}
