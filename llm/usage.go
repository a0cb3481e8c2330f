package llm

import "encoding/json"

// TokenUsage is the token accounting reported for one completion
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type rawUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

type rawResponse struct {
	Usage *rawUsage `json:"usage"`
}

// ParseTokenUsage extracts the usage object of a raw chat-completion response.
// It returns nil unless prompt, completion and total counts are all present and
// non-negative; malformed input is treated as missing usage.
func ParseTokenUsage(raw []byte) *TokenUsage {
	if len(raw) == 0 {
		return nil
	}

	var resp rawResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Usage == nil {
		return nil
	}
	return resp.Usage.validate()
}

func (u *rawUsage) validate() *TokenUsage {
	if u.PromptTokens == nil || u.CompletionTokens == nil || u.TotalTokens == nil {
		return nil
	}
	if *u.PromptTokens < 0 || *u.CompletionTokens < 0 || *u.TotalTokens < 0 {
		return nil
	}
	return &TokenUsage{
		PromptTokens:     *u.PromptTokens,
		CompletionTokens: *u.CompletionTokens,
		TotalTokens:      *u.TotalTokens,
	}
}
