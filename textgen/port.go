package textgen

import "context"

// GenerationRequest es un prompt ya renderizado contra el contexto de la
// conversación; el proveedor no ve variables sin resolver.
type GenerationRequest struct {
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// Generator es el contrato del proveedor de generación de texto.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
