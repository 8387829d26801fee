// Package ai talks to the external generation models.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/brightly-app/brightly/backend/internal/config"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/model/chat"
)

const module = "ai"

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Request is one generation call: the composed system prompt, prior turns and
// the new user text.
type Request struct {
	System  string
	History []chat.Message
	Query   string
}

// Service runs requests through an eino chain: system prompt, history
// placeholder, user message, chat model.
type Service struct {
	chatModel model.BaseChatModel
	streaming bool
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       logger.Logger
}

// NewService creates a new AI service instance backed by Ark.
func NewService(ctx context.Context, cfg config.AIConfig, log logger.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.StreamResponse, log)
}

// NewServiceWithModel compiles the chain around an existing model. A nil
// logger discards output.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, streaming bool, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		streaming: streaming,
		chain:     runnable,
		log:       log,
	}, nil
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.streaming
}

// Generate returns the complete reply for req.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	response, err := s.chain.Invoke(ctx, buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyResponse
	}

	s.log.Debug(module, "generated response", map[string]interface{}{"length": len(response.Content)})
	return response.Content, nil
}

// Stream forwards reply chunks to onDelta as they arrive and returns the
// concatenated reply. When streaming is disabled the whole reply is delivered
// as a single delta.
func (s *Service) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	if !s.streaming {
		reply, err := s.Generate(ctx, req)
		if err == nil && onDelta != nil {
			onDelta(reply)
		}
		return reply, err
	}

	stream, err := s.chain.Stream(ctx, buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", ErrEmptyResponse
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyResponse
	}
	s.log.Debug(module, "streamed response", map[string]interface{}{"length": len(response.Content), "chunks": len(chunks)})
	return response.Content, nil
}

func buildChainInput(req Request) map[string]any {
	return map[string]any{
		"system":  req.System,
		"history": buildHistoryMessages(req.History),
		"query":   req.Query,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
