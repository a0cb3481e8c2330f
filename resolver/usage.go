package resolver

import "github.com/zijiren233/openapi-plugin-resolver/llm"

// Usage is the running token total of a resolution
type Usage struct {
	Prompt   int `json:"prompt"`
	Response int `json:"response"`
	Total    int `json:"total"`
}

// Accumulate adds the token counts of a completion to u. Completions without
// complete usage leave u unchanged.
func Accumulate(u Usage, c *llm.Completion) Usage {
	if c == nil || c.Usage == nil {
		return u
	}
	t := c.Usage
	if t.PromptTokens < 0 || t.CompletionTokens < 0 || t.TotalTokens < 0 {
		return u
	}

	return Usage{
		Prompt:   u.Prompt + t.PromptTokens,
		Response: u.Response + t.CompletionTokens,
		Total:    u.Total + t.TotalTokens,
	}
}
