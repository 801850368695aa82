// Package prompts builds the deterministic prompt pairs for the three
// analysis call shapes. Prompt text doubles as the response contract: each
// prompt states the exact JSON shape the gateway validates against.
package prompts

import (
	"strings"
)

// BuildFeedbackAnalysisPrompt creates the prompt for analyzing one feedback
// body. For unlinked (general) feedback the model additionally suggests a
// short theme label used for topic resolution.
func BuildFeedbackAnalysisPrompt(body string, linked bool) string {
	var prompt strings.Builder

	prompt.WriteString("# Feedback Analysis\n\n")
	prompt.WriteString("Analyze the following feedback submission.\n\n")
	prompt.WriteString("## Feedback\n\n")
	prompt.WriteString(body)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Scoring Guidelines\n\n")
	prompt.WriteString("Score each dimension from 0.0 to 1.0:\n")
	prompt.WriteString("- `urgency`: how time-sensitive is acting on this feedback\n")
	prompt.WriteString("- `importance`: how much it matters to the people affected\n")
	prompt.WriteString("- `clarity`: how clearly the problem or praise is expressed\n")
	prompt.WriteString("- `quality`: how substantive and specific the feedback is\n")
	prompt.WriteString("- `helpfulness`: how actionable it is for the receiving team\n\n")

	prompt.WriteString("Classify `sentiment` as one of: positive, negative, neutral, mixed.\n")
	prompt.WriteString("Classify `tone` as one of: appreciative, satisfied, neutral, concerned, frustrated, angry.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `sentiment`: overall polarity\n")
	prompt.WriteString("- `tone`: emotional register\n")
	prompt.WriteString("- `urgency`, `importance`, `clarity`, `quality`, `helpfulness`: scores in [0.0, 1.0]\n")
	if !linked {
		prompt.WriteString("- `theme`: a short topic label (at most 100 characters) naming what this feedback is about\n")
	}
	prompt.WriteString("\nExample:\n")
	prompt.WriteString("```json\n")
	if linked {
		prompt.WriteString(`{
  "sentiment": "negative",
  "tone": "frustrated",
  "urgency": 0.8,
  "importance": 0.7,
  "clarity": 0.9,
  "quality": 0.6,
  "helpfulness": 0.7
}
`)
	} else {
		prompt.WriteString(`{
  "sentiment": "negative",
  "tone": "frustrated",
  "urgency": 0.8,
  "importance": 0.7,
  "clarity": 0.9,
  "quality": 0.6,
  "helpfulness": 0.7,
  "theme": "Library WiFi Connectivity Issues"
}
`)
	}
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// FeedbackAnalysisSystemMessage returns the system message for feedback analysis.
func FeedbackAnalysisSystemMessage() string {
	return `You are a feedback analyst. You classify free-text feedback submissions by sentiment and tone and score them on five quality dimensions, responding only in the requested JSON format.`
}

// BuildTopicNamePrompt creates the prompt for suggesting a topic label.
func BuildTopicNamePrompt(body string) string {
	var prompt strings.Builder

	prompt.WriteString("Suggest a short topic name for the following feedback.\n\n")
	prompt.WriteString("## Feedback\n\n")
	prompt.WriteString(body)
	prompt.WriteString("\n\n")
	prompt.WriteString("The name must:\n")
	prompt.WriteString("- be at most 100 characters\n")
	prompt.WriteString("- name the subject, not the sentiment (\"Cafeteria Pricing\" not \"Complaints\")\n")
	prompt.WriteString("- be reusable for similar feedback from other people\n\n")
	prompt.WriteString("Respond in JSON: ")
	prompt.WriteString(`{"name": "<topic name>"}`)
	prompt.WriteString("\n\nReturn ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// TopicNameSystemMessage returns the system message for topic naming.
func TopicNameSystemMessage() string {
	return `You are a feedback analyst. You produce short, canonical topic labels for clustering related feedback, responding only in the requested JSON format.`
}
