package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		found bool
	}{
		{
			name:  "bare json object",
			text:  `{"name": "web_search", "arguments": {"query": "курс доллара", "reason": "нужны свежие данные"}}`,
			query: "курс доллара",
			found: true,
		},
		{
			name:  "json embedded in prose",
			text:  "Мне нужно поискать.\n{\"name\": \"web_search\", \"arguments\": {\"query\": \"go 1.25 release\", \"reason\": \"not in context\"}}\nСейчас проверю.",
			query: "go 1.25 release",
			found: true,
		},
		{
			name: "multiline json",
			text: "{\n  \"name\": \"web_search\",\n  \"arguments\": {\n    \"query\": \"weather\",\n    \"reason\": \"fresh data\"\n  }\n}",
			query: "weather",
			found: true,
		},
		{
			name:  "plain answer without braces",
			text:  "Ответ: столица Франции -- Париж.",
			found: false,
		},
		{
			name:  "malformed json",
			text:  `{"name": "web_search", "arguments": {"query": }`,
			found: false,
		},
		{
			name:  "different tool name",
			text:  `{"name": "calculator", "arguments": {"query": "2+2", "reason": "math"}}`,
			found: false,
		},
		{
			name:  "missing query argument",
			text:  `{"name": "web_search", "arguments": {"reason": "just because"}}`,
			found: false,
		},
		{
			name:  "missing reason argument",
			text:  `{"name": "web_search", "arguments": {"query": "something"}}`,
			found: false,
		},
		{
			name:  "non-string query",
			text:  `{"name": "web_search", "arguments": {"query": 42, "reason": "numeric"}}`,
			found: false,
		},
		{
			name:  "empty input",
			text:  "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := ParseToolCall(tt.text)
			if !tt.found {
				assert.Nil(t, call)
				return
			}
			require.NotNil(t, call)
			assert.Equal(t, WebSearchToolName, call.Name)
			assert.Equal(t, tt.query, call.Query())
			assert.NotEmpty(t, call.Reason())
		})
	}
}
