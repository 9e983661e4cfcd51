package nodeexec

import (
	"context"
	"log"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/dialogo-labs/dialogo/textgen"
)

// TextGenExecutor genera una respuesta con el proveedor de texto a partir de
// un prompt renderizado contra el contexto.
type TextGenExecutor struct {
	generator textgen.Generator
	timeout   time.Duration
}

var _ flow.NodeExecutor = (*TextGenExecutor)(nil)

func NewTextGenExecutor(generator textgen.Generator, timeout time.Duration) *TextGenExecutor {
	return &TextGenExecutor{generator: generator, timeout: timeout}
}

func (e *TextGenExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	prompt, ok := node.StringData("prompt", "user_prompt", "promptTemplate")
	if !ok {
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "Lo siento, no pude generar una respuesta en este momento.",
		}, nil
	}

	req := textgen.GenerationRequest{
		Prompt: flow.RenderTemplate(prompt, execCtx),
	}
	if system, ok := node.StringData("system_prompt", "systemPrompt"); ok {
		req.SystemPrompt = flow.RenderTemplate(system, execCtx)
	}
	if model, ok := node.StringData("model"); ok {
		req.Model = model
	}
	if maxTokens, ok := node.IntData("max_tokens", "maxTokens"); ok {
		req.MaxTokens = maxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.generator.Generate(callCtx, req)
	if err != nil {
		log.Printf("⚠️ text generation failed for tenant %s: %v", tenantID.String(), err)
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "Lo siento, no pude generar una respuesta en este momento.",
		}, nil
	}

	result := execCtx.Clone()
	result.Set("generated_text", text)

	return &flow.ExecResult{
		NextBranch: flow.BranchResponse,
		Message:    text,
		Context:    result,
	}, nil
}

func (e *TextGenExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeTextGen
}

func (e *TextGenExecutor) ValidateConfig(data map[string]any) error {
	node := flow.Node{Data: data}
	if _, ok := node.StringData("prompt", "user_prompt", "promptTemplate"); !ok {
		return flow.ErrInvalidFlowDefinition().
			WithDetail("reason", "text generation node has no prompt")
	}
	return nil
}
