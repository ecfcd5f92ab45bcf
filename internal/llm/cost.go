package llm

import "strings"

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Base model names; providers answer with dated snapshots such as
// "gpt-4o-mini-2024-07-18", which resolve by longest prefix.
var prices = map[string]Price{
	"gpt-4o":           {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":      {Input: 0.15, Output: 0.60},
	"gpt-4.1":          {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini":     {Input: 0.40, Output: 1.60},
	"claude-3-haiku":   {Input: 0.25, Output: 1.25},
	"claude-3-5-haiku": {Input: 0.80, Output: 4.00},
	"claude-sonnet-4":  {Input: 3.00, Output: 15.00},
}

// PriceFor finds the price of model or of the longest base name it extends.
func PriceFor(model string) (Price, bool) {
	if p, ok := prices[model]; ok {
		return p, true
	}
	best := ""
	for base := range prices {
		if strings.HasPrefix(model, base+"-") && len(base) > len(best) {
			best = base
		}
	}
	if best == "" {
		return Price{}, false
	}
	return prices[best], true
}

// CalculateCost returns 0 for unknown models.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := PriceFor(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.Input + float64(outputTokens)*p.Output) / 1e6
}
