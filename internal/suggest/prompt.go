package suggest

import (
	"bytes"
	"fmt"
	"text/template"

	"fuellog/internal/core"
)

var promptTemplate = template.Must(template.New("suggest").Parse(`You are an AI-powered fuel pricing expert. Analyze historical trends and current market data to suggest an optimal fuel price.

Fuel Type: {{.FuelType}}

Historical Data: {{.HistoricalData}}

Current Market Data: {{.CurrentMarketData}}

Consider these factors to provide a data-driven suggested price and a clear explanation of your reasoning.

Output the suggested price as a number and provide a short explanation.

Respond with ONLY a JSON object of this exact shape, no markdown and no extra text:
{"suggestedPrice": number, "reasoning": "string"}
`))

type promptData struct {
	FuelType          core.FuelType
	HistoricalData    string
	CurrentMarketData string
}

// BuildPrompt embeds the canonical JSON documents verbatim.
func BuildPrompt(t core.FuelType, historical, market string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		FuelType:          t,
		HistoricalData:    historical,
		CurrentMarketData: market,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
