// Package agent implements the tool-call decision loop: one deterministic
// model call decides whether local context suffices, and at most one web
// search round augments the context before the final answer.
package agent

import (
	"context"
	"fmt"
	"strings"

	"askdoc/llm"
	"askdoc/pubsub"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// WebSearcher is the web-search escalation boundary: it runs one search and
// returns the collected page text. An empty result means the search found
// nothing usable, not a failure.
type WebSearcher interface {
	SearchAndCollect(ctx context.Context, query string) (string, error)
}

// Decision-mode sampling must be reproducible: for the same input the model
// must make the same tool-call decision run to run. The answer call tolerates
// more varied phrasing since it is terminal.
var (
	decisionOpts = []model.Option{model.WithTemperature(0.1), model.WithTopP(0.95)}
	answerOpts   = []model.Option{model.WithTemperature(0.7), model.WithTopP(0.8)}
)

// Agent orchestrates one question round. It is stateless across requests:
// Run is a pure function of its inputs plus the model's behavior.
type Agent struct {
	chatModel model.BaseChatModel
	web       WebSearcher
	events    pubsub.Publisher[pubsub.Notice]
	log       zerolog.Logger
}

// New creates an agent over a chat model and a web-search bridge. events may
// be nil.
func New(chatModel model.BaseChatModel, web WebSearcher, events pubsub.Publisher[pubsub.Notice], log zerolog.Logger) *Agent {
	return &Agent{
		chatModel: chatModel,
		web:       web,
		events:    events,
		log:       log,
	}
}

// Run answers query against contextBlock.
//
// The decision call runs with the tool-contract system prompt. If its output
// carries no valid tool call, that output already is the final answer — no
// second call is made. A valid web_search call triggers exactly one search;
// the collected text is appended to the context and the model is called once
// more with the stricter no-fabrication prompt. There is no loop: a
// malformed tool call degrades to treating the decision output as final.
func (a *Agent) Run(ctx context.Context, query, contextBlock string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(agentSystemPrompt),
		schema.UserMessage(userTurn(contextBlock, query)),
	}

	first, err := a.chatModel.Generate(ctx, messages, decisionOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: decision call failed: %v", llm.ErrExternalService, err)
	}

	call := ParseToolCall(first.Content)
	if call == nil {
		return strings.TrimSpace(first.Content), nil
	}

	a.log.Info().Str("query", call.Query()).Str("reason", call.Reason()).Msg("web search requested")

	collected, err := a.web.SearchAndCollect(ctx, call.Query())
	if err != nil {
		return "", err
	}
	if a.events != nil {
		a.events.Publish(pubsub.WebSearchPerformed, pubsub.Notice{Detail: call.Query()})
	}

	contextBlock += llm.ContextSeparator + "Информация из интернет источников\n" + collected + llm.ContextSeparator

	messages = []*schema.Message{
		schema.SystemMessage(defaultSystemPrompt),
		schema.UserMessage(userTurn(contextBlock, query)),
	}

	final, err := a.chatModel.Generate(ctx, messages, answerOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: answer call failed: %v", llm.ErrExternalService, err)
	}

	return strings.TrimSpace(final.Content), nil
}

// userTurn renders the user message carrying current context and question.
func userTurn(contextBlock, query string) string {
	return fmt.Sprintf("Контекст:\n%s\n\nВопрос:\n%s", contextBlock, query)
}
