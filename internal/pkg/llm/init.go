package llm

import (
	"Pulseboard/internal/api/config"
	log "log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var llmClient llms.Model

var coachPrompt string
var insightPrompt string

func InitLLM() error {
	cfg := config.Cfg.LLM

	llm, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.ApiKey),
		openai.WithBaseURL(cfg.URL),
	)

	if err != nil {
		log.Error("AI大模型初始化失败", "err", err)
		return err
	}

	llmClient = llm

	// 从prompt txt文件中读取prompt
	coachPrompt = readPrompt("./prompts/coach.txt")
	insightPrompt = readPrompt("./prompts/insight.txt")

	return nil
}

// CoachPrompt 社群教练的系统提示词
func CoachPrompt() string {
	return coachPrompt
}

// InsightPrompt 每日洞察的系统提示词
func InsightPrompt() string {
	return insightPrompt
}
