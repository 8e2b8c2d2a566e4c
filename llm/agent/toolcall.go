package agent

import (
	"encoding/json"
	"regexp"
)

// WebSearchToolName is the only tool the model may request.
const WebSearchToolName = "web_search"

// bracesSpan matches the widest brace-delimited span in the model output,
// spanning newlines. Deliberately permissive: the model may wrap the JSON
// block in prose on either side.
var bracesSpan = regexp.MustCompile(`(?s)\{.*\}`)

// ToolCall is a validated tool invocation extracted from model output.
// A value exists only if the output contained a syntactically valid JSON
// object naming the web_search tool with both required arguments.
type ToolCall struct {
	Name      string
	Arguments map[string]string
}

// Query returns the search query argument.
func (t *ToolCall) Query() string { return t.Arguments["query"] }

// Reason returns the model's stated reason for the search.
func (t *ToolCall) Reason() string { return t.Arguments["reason"] }

// ParseToolCall extracts a tool call from raw model output, returning nil
// when none is found. Absence is the normal "no tool needed" signal, never
// an error: malformed JSON, a different tool name or missing arguments all
// mean the model chose to answer directly. The parser fails closed and
// invents no defaults for missing fields.
func ParseToolCall(text string) *ToolCall {
	span := bracesSpan.FindString(text)
	if span == "" {
		return nil
	}

	var payload struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil
	}
	if payload.Name != WebSearchToolName {
		return nil
	}

	args := make(map[string]string, len(payload.Arguments))
	for _, key := range []string{"query", "reason"} {
		raw, ok := payload.Arguments[key]
		if !ok {
			return nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil
		}
		args[key] = s
	}

	return &ToolCall{Name: payload.Name, Arguments: args}
}
