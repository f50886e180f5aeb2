package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens returns the approximate token count of text for the
// given model. Falls back to a bytes/4 heuristic when the model's
// encoding is unavailable (offline environments, unknown models).
func EstimateTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
