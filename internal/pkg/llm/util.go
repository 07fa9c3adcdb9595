package llm

import (
	"Pulseboard/internal/api/config"
	"context"
	log "log/slog"
	"os"

	"github.com/tmc/langchaingo/llms"
)

type StreamFunc func(ctx context.Context, chunk []byte) error

func readPrompt(file string) string {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Error("读取prompt文件失败", "err", err)
		return ""
	}
	return string(data)
}

// FetchChat 携带历史消息的多轮对话调用
func FetchChat(ctx context.Context, systemPrompt string, history []llms.MessageContent, question string, streamFunc StreamFunc) (string, error) {
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer TextSem.Release(1)

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.MessageContent{
		Role: llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{
			llms.TextPart(systemPrompt),
		},
	})
	messages = append(messages, history...)
	messages = append(messages, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(question),
		},
	})

	log.Info("正在请求AI大模型")
	opts := []llms.CallOption{
		llms.WithModel(config.Cfg.LLM.Model),
		llms.WithTemperature(0.7),
	}
	if streamFunc != nil {
		opts = append(opts, llms.WithStreamingFunc(streamFunc))
	}

	resp, err := llmClient.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// FetchCompletion 单轮调用
func FetchCompletion(ctx context.Context, systemPrompt string, userPrompt string, temp float64) (string, error) {
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer TextSem.Release(1)

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}

	log.Info("正在请求AI大模型")
	resp, err := llmClient.GenerateContent(ctx, messages,
		llms.WithModel(config.Cfg.LLM.Model),
		llms.WithTemperature(temp),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
