package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"askdoc/llm"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel plays back one canned response per Generate call and records
// the messages it was handed.
type scriptedModel struct {
	responses []string
	err       error
	calls     [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls = append(m.calls, in)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.calls) - 1
	return schema.AssistantMessage(m.responses[idx], nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type fakeWeb struct {
	result  string
	err     error
	queries []string
}

func (w *fakeWeb) SearchAndCollect(_ context.Context, query string) (string, error) {
	w.queries = append(w.queries, query)
	return w.result, w.err
}

func TestAgentAnswersDirectlyWithoutToolCall(t *testing.T) {
	chat := &scriptedModel{responses: []string{"  Париж является столицей Франции.  "}}
	web := &fakeWeb{}
	a := New(chat, web, nil, zerolog.Nop())

	answer, err := a.Run(context.Background(), "Какая столица Франции?", "Франция. Столица: Париж.")
	require.NoError(t, err)

	assert.Equal(t, "Париж является столицей Франции.", answer)
	assert.Len(t, chat.calls, 1, "direct answer must not trigger a second model call")
	assert.Empty(t, web.queries, "direct answer must not trigger a web search")
}

func TestAgentEscalatesToWebSearch(t *testing.T) {
	chat := &scriptedModel{responses: []string{
		`{"name": "web_search", "arguments": {"query": "курс доллара сегодня", "reason": "нет в контексте"}}`,
		"Курс составляет 92 рубля.",
	}}
	web := &fakeWeb{result: "Источник: https://example.com\nКурс доллара: 92 рубля."}
	a := New(chat, web, nil, zerolog.Nop())

	answer, err := a.Run(context.Background(), "Какой курс доллара?", "Документы о валютной политике.")
	require.NoError(t, err)

	assert.Equal(t, "Курс составляет 92 рубля.", answer)
	require.Len(t, chat.calls, 2)
	assert.Equal(t, []string{"курс доллара сегодня"}, web.queries)

	// The second call must carry the collected web text inside its context and
	// must not run under the tool-contract prompt again.
	second := chat.calls[1]
	require.Len(t, second, 2)
	assert.Equal(t, defaultSystemPrompt, second[0].Content)
	assert.Contains(t, second[1].Content, llm.ContextSeparator+"Информация из интернет источников\n")
	assert.Contains(t, second[1].Content, "Курс доллара: 92 рубля."+llm.ContextSeparator)
	assert.Contains(t, second[1].Content, "Какой курс доллара?")
}

func TestAgentFirstCallUsesToolPrompt(t *testing.T) {
	chat := &scriptedModel{responses: []string{"answer"}}
	a := New(chat, &fakeWeb{}, nil, zerolog.Nop())

	_, err := a.Run(context.Background(), "q", "ctx")
	require.NoError(t, err)

	require.Len(t, chat.calls, 1)
	first := chat.calls[0]
	require.Len(t, first, 2)
	assert.Equal(t, agentSystemPrompt, first[0].Content)
	assert.Contains(t, first[1].Content, "Контекст:\nctx")
	assert.Contains(t, first[1].Content, "Вопрос:\nq")
}

func TestAgentPropagatesSearchError(t *testing.T) {
	chat := &scriptedModel{responses: []string{
		`{"name": "web_search", "arguments": {"query": "x", "reason": "y"}}`,
		"unreachable",
	}}
	searchErr := errors.New("network down")
	a := New(chat, &fakeWeb{err: searchErr}, nil, zerolog.Nop())

	_, err := a.Run(context.Background(), "q", "ctx")
	assert.ErrorIs(t, err, searchErr)
	assert.Len(t, chat.calls, 1, "answer call must not run after a failed search")
}

func TestAgentWrapsModelError(t *testing.T) {
	chat := &scriptedModel{err: errors.New("upstream 500")}
	a := New(chat, &fakeWeb{}, nil, zerolog.Nop())

	_, err := a.Run(context.Background(), "q", "ctx")
	assert.ErrorIs(t, err, llm.ErrExternalService)
	assert.True(t, strings.Contains(err.Error(), "upstream 500"))
}
