// Package usage tracks language-model token consumption and derives
// cost estimates from a fixed per-million-token pricing table.
package usage

// TokenUsage accumulates token counts for one task run. The zero value
// is valid and represents a run where the agent reported no usage.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	CachedTokens int `json:"cached_tokens"`
}

// Add merges another usage sample into the total.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CachedTokens += other.CachedTokens
}

// Total returns the sum of input, output, and cached tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CachedTokens
}

// IsZero reports whether no usage was recorded.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.CachedTokens == 0
}

// Pricing holds per-million-token rates in USD.
type Pricing struct {
	Model            string  `json:"model"`
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
	CachedPerMillion float64 `json:"cached_per_million"`
}

// DefaultPricing is the built-in rate table used when no override is
// configured.
var DefaultPricing = Pricing{
	Model:            "gpt-4o",
	InputPerMillion:  2.50,
	OutputPerMillion: 10.00,
	CachedPerMillion: 1.25,
}

// Cost computes the estimated cost in USD for the given usage. The
// computation is a pure linear function of the three token counts.
func (p Pricing) Cost(u TokenUsage) float64 {
	return float64(u.InputTokens)/1_000_000*p.InputPerMillion +
		float64(u.OutputTokens)/1_000_000*p.OutputPerMillion +
		float64(u.CachedTokens)/1_000_000*p.CachedPerMillion
}

// CostEstimate pairs a computed cost with the pricing table that
// produced it, for echoing into manifests.
type CostEstimate struct {
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Pricing          Pricing `json:"pricing"`
}

// Estimate builds a CostEstimate for the given usage.
func (p Pricing) Estimate(u TokenUsage) CostEstimate {
	return CostEstimate{
		EstimatedCostUSD: p.Cost(u),
		Pricing:          p,
	}
}
