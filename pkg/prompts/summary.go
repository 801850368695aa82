package prompts

import (
	"fmt"
	"strings"
)

// SummaryInput carries the aggregate context for one executive summary.
type SummaryInput struct {
	// Subject is the display name of the topic or inquiry being summarized.
	Subject string

	// Bodies is the (possibly sampled) set of contributing feedback bodies.
	Bodies []string

	// SentimentCounts is the sentiment distribution over ALL contributing
	// items, not just the sample.
	SentimentCounts map[string]int

	// TotalContributions is the full contributing-item count.
	TotalContributions int
}

// BuildSummaryPrompt creates the prompt for executive summary generation.
// It includes the sentiment distribution, the sampled feedback bodies, and
// the JSON response contract for the narrative and suggested actions.
func BuildSummaryPrompt(input SummaryInput) string {
	var prompt strings.Builder

	prompt.WriteString("# Executive Feedback Summary\n\n")
	prompt.WriteString(fmt.Sprintf("Summarize the feedback received about: %s\n\n", input.Subject))

	prompt.WriteString("## Response Statistics\n\n")
	prompt.WriteString(fmt.Sprintf("Total responses: %d", input.TotalContributions))
	if len(input.Bodies) < input.TotalContributions {
		prompt.WriteString(fmt.Sprintf(" (%d sampled below)", len(input.Bodies)))
	}
	prompt.WriteString("\n")
	for _, sentiment := range []string{"positive", "negative", "neutral", "mixed"} {
		if count, ok := input.SentimentCounts[sentiment]; ok && count > 0 {
			prompt.WriteString(fmt.Sprintf("- %s: %d\n", sentiment, count))
		}
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Feedback Responses\n\n")
	for i, body := range input.Bodies {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, body))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `topic_labels`: array of short labels naming the themes present in the responses\n")
	prompt.WriteString("- `narrative`: object with exactly these keys, each a 1-3 sentence string:\n")
	prompt.WriteString("  - `headline`: the single most important takeaway\n")
	prompt.WriteString("  - `response_mix`: who is saying what, and in what proportion\n")
	prompt.WriteString("  - `key_takeaways`: what the responses collectively establish\n")
	prompt.WriteString("  - `risks`: what happens if nothing changes\n")
	prompt.WriteString("  - `opportunities`: where a response would have outsized effect\n")
	prompt.WriteString("- `actions`: array of suggested follow-ups, each with:\n")
	prompt.WriteString("  - `action`: what to do (one sentence)\n")
	prompt.WriteString("  - `impact`: one of \"low\", \"medium\", \"high\"\n")
	prompt.WriteString("  - `challenges`: what makes it hard (may be empty)\n")
	prompt.WriteString("  - `supporting_responses`: how many responses support this action\n")
	prompt.WriteString("  - `reasoning`: why this action, in one sentence\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "topic_labels": ["WiFi Reliability", "Study Space Availability"],
  "narrative": {
    "headline": "Connectivity problems in the library are the dominant complaint this period.",
    "response_mix": "Most responses are negative and come from evening users; a minority praise the new seating.",
    "key_takeaways": "The WiFi issues are concentrated on the second floor and peak after 6pm.",
    "risks": "Continued outages will push students to off-campus study spaces.",
    "opportunities": "A targeted access-point upgrade would address the majority of complaints."
  },
  "actions": [
    {
      "action": "Audit and upgrade second-floor access points",
      "impact": "high",
      "challenges": "Requires IT scheduling around exam period",
      "supporting_responses": 14,
      "reasoning": "Most complaints name the second floor specifically."
    }
  ]
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// SummarySystemMessage returns the system message for summary generation.
func SummarySystemMessage() string {
	return `You are an operations analyst writing for busy decision-makers. You distill batches of feedback into a concise executive summary with concrete suggested actions, responding only in the requested JSON format.`
}
