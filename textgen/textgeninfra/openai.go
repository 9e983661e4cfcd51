package textgeninfra

import (
	"context"

	"github.com/Abraxas-365/craftable/ai/llm"
	"github.com/Abraxas-365/craftable/ai/providers/aiopenai"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/dialogo-labs/dialogo/pkg/config"
	"github.com/dialogo-labs/dialogo/textgen"
)

// OpenAIGenerator genera texto con el proveedor de OpenAI de craftable.
type OpenAIGenerator struct {
	client       llm.Client
	defaultModel string
}

var _ textgen.Generator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(cfg config.OpenAIConfig) *OpenAIGenerator {
	provider := aiopenai.NewOpenAIProvider(cfg.APIKey)
	return &OpenAIGenerator{
		client:       *llm.NewClient(provider),
		defaultModel: cfg.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req textgen.GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	messages := []llm.Message{}
	if req.SystemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(req.SystemPrompt))
	}
	messages = append(messages, llm.NewUserMessage(req.Prompt))

	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	response, err := g.client.Chat(ctx, messages,
		llm.WithModel(model),
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", errx.Wrap(err, "LLM call failed", errx.TypeExternal)
	}

	return response.Message.Content, nil
}
