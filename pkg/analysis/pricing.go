package analysis

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var pricingYAML []byte

// RatePair is a per-1K-token prompt/completion rate in USD.
type RatePair struct {
	Prompt     float64 `yaml:"prompt"`
	Completion float64 `yaml:"completion"`
}

// PricingTable maps model names to token rates. Lookups fall back to a
// configurable default pair for models absent from the table, so cost
// accounting keeps working when a new model ships before the table updates.
type PricingTable struct {
	models      map[string]RatePair
	defaultRate RatePair
}

type pricingFile struct {
	Models map[string]RatePair `yaml:"models"`
}

// LoadPricingTable parses the embedded pricing table.
func LoadPricingTable(defaultPromptRate, defaultCompletionRate float64) (*PricingTable, error) {
	var pf pricingFile
	if err := yaml.Unmarshal(pricingYAML, &pf); err != nil {
		return nil, fmt.Errorf("parse embedded pricing table: %w", err)
	}

	return &PricingTable{
		models: pf.Models,
		defaultRate: RatePair{
			Prompt:     defaultPromptRate,
			Completion: defaultCompletionRate,
		},
	}, nil
}

// Rates returns the rate pair for a model. Dated model aliases
// ("claude-sonnet-4-5-20250929") match their undated table entry by prefix.
func (t *PricingTable) Rates(model string) RatePair {
	if r, ok := t.models[model]; ok {
		return r
	}
	for name, r := range t.models {
		if strings.HasPrefix(model, name+"-") {
			return r
		}
	}
	return t.defaultRate
}

// Cost computes the monetary cost of one call.
func (t *PricingTable) Cost(model string, promptTokens, completionTokens int) float64 {
	r := t.Rates(model)
	return float64(promptTokens)/1000*r.Prompt + float64(completionTokens)/1000*r.Completion
}
