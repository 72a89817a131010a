package graph

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// LoggerCallback logs node lifecycle events and, when Out is set, pushes a
// one-line progress message per node start.
type LoggerCallback struct {
	Log zerolog.Logger
	Out chan<- string
}

func (cb *LoggerCallback) push(msg string) {
	if cb.Out == nil {
		return
	}
	select {
	case cb.Out <- msg:
	default:
	}
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil || info.Name == "" {
		return ctx
	}
	cb.Log.Debug().Str("node", info.Name).Str("component", string(info.Component)).Msg("node start")
	cb.push(fmt.Sprintf("[%s] started", info.Name))
	return ctx
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if info == nil || info.Name == "" {
		return ctx
	}
	cb.Log.Debug().Str("node", info.Name).Msg("node end")
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	cb.Log.Error().Err(err).Str("node", name).Msg("node failed")
	cb.push(fmt.Sprintf("[%s] failed: %v", name, err))
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	go func() {
		defer output.Close()
		defer func() {
			if r := recover(); r != nil {
				cb.Log.Error().Interface("panic", r).Msg("stream callback panic")
			}
		}()
		for {
			_, err := output.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				cb.Log.Warn().Err(err).Msg("stream callback recv")
				return
			}
		}
	}()
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	defer input.Close()
	return ctx
}
