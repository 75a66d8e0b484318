package usage

import "github.com/tidwall/gjson"

// Tokens holds the usage fields read from an OpenAI-compatible response.
type Tokens struct {
	ProviderID   string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// ExtractTokens reads id and usage counters from a chat completion body.
// Missing or malformed fields are left at zero; a nil body yields zero Tokens.
func ExtractTokens(body []byte) Tokens {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return Tokens{}
	}

	fields := gjson.GetManyBytes(body,
		"id",
		"usage.prompt_tokens",
		"usage.completion_tokens",
		"usage.total_tokens",
	)

	t := Tokens{
		ProviderID:   fields[0].String(),
		InputTokens:  int(fields[1].Int()),
		OutputTokens: int(fields[2].Int()),
		TotalTokens:  int(fields[3].Int()),
	}
	if t.TotalTokens == 0 {
		t.TotalTokens = t.InputTokens + t.OutputTokens
	}
	return t
}
