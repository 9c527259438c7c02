package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const previewRunes = 240

// NewModelCallbacks logs every chat model call at debug level and every
// failure at warn level.
func NewModelCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Handler()
}

func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := log.Debug()
			if !ev.Enabled() {
				return ctx
			}
			withRun(ev, info)
			if input != nil {
				ev.Int("messages", len(input.Messages)).
					Str("user", preview(lastUserContent(input.Messages)))
			}
			ev.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := log.Debug()
			if !ev.Enabled() {
				return ctx
			}
			withRun(ev, info)
			if output != nil && output.Message != nil {
				ev.Str("assistant", preview(output.Message.Content))
			}
			if output != nil && output.TokenUsage != nil {
				ev.Int("prompt_tokens", output.TokenUsage.PromptTokens).
					Int("completion_tokens", output.TokenUsage.CompletionTokens)
			}
			ev.Msg("model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			ev := log.Warn().Err(err)
			withRun(ev, info)
			ev.Msg("model error")
			return ctx
		},
	}
}

func withRun(ev *zerolog.Event, info *einocb.RunInfo) {
	if info == nil {
		return
	}
	ev.Str("component", string(info.Component)).Str("type", info.Type).Str("name", info.Name)
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
