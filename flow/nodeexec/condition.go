package nodeexec

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// BranchDefault es la rama que toma un nodo de condición cuando el valor del
// usuario no coincide con ninguna opción configurada.
const BranchDefault = "default"

// ConditionExecutor ramifica la conversación según un valor del contexto:
// normalmente la opción de menú que el usuario escribió. Soporta además un
// modo de expresión CEL para condiciones que no son un simple menú.
type ConditionExecutor struct{}

var _ flow.NodeExecutor = (*ConditionExecutor)(nil)

func NewConditionExecutor() *ConditionExecutor {
	return &ConditionExecutor{}
}

func (e *ConditionExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	if expr, ok := node.StringData("expression", "cel_expression"); ok {
		return e.executeExpression(expr, execCtx)
	}

	variable := node.ConditionVariable()
	value := strings.TrimSpace(execCtx.GetString(variable))

	options := node.StringListData("options", "branches", "opciones")
	branch := matchOption(value, options)

	result := execCtx.Clone()
	result.Set(variable, value)
	if branch != BranchDefault {
		result.Set(variable+"_matched", branch)
	}

	return &flow.ExecResult{
		NextBranch: branch,
		Context:    result,
	}, nil
}

// matchOption compares the user's value against the configured options:
// exact match first, then case-insensitive, then a 1-based numeric index
// for users who reply "2" to a numbered menu.
func matchOption(value string, options []string) string {
	if value == "" || len(options) == 0 {
		return BranchDefault
	}

	for _, opt := range options {
		if value == opt {
			return opt
		}
	}

	lowered := strings.ToLower(value)
	for _, opt := range options {
		if lowered == strings.ToLower(strings.TrimSpace(opt)) {
			return opt
		}
	}

	if idx, err := strconv.Atoi(value); err == nil && idx >= 1 && idx <= len(options) {
		return options[idx-1]
	}

	return BranchDefault
}

// executeExpression evaluates a CEL expression against the context. Truthy
// results follow the "true" branch, falsy results "false"; an expression
// that fails to compile or evaluate follows "default" so the flow keeps
// moving instead of dying on author typos.
func (e *ConditionExecutor) executeExpression(expression string, execCtx *flow.ExecContext) (*flow.ExecResult, error) {
	contextMap := execCtx.AsMap()

	var envOptions []cel.EnvOption
	for _, key := range execCtx.Keys() {
		envOptions = append(envOptions, cel.Variable(key, cel.DynType))
	}

	branch, err := evaluateBoolCEL(expression, envOptions, contextMap)
	if err != nil {
		log.Printf("⚠️ CEL condition failed, taking default branch: %v", err)
		return &flow.ExecResult{NextBranch: BranchDefault}, nil
	}

	next := "false"
	if branch {
		next = "true"
	}
	return &flow.ExecResult{NextBranch: next}, nil
}

func evaluateBoolCEL(expression string, envOptions []cel.EnvOption, contextMap map[string]any) (bool, error) {
	env, err := cel.NewEnv(envOptions...)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	parsed, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to parse expression '%s': %w", expression, issues.Err())
	}

	checked, issues := env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		// dynamic data: check warnings are not fatal
		checked = parsed
	}

	prg, err := env.Program(checked)
	if err != nil {
		return false, fmt.Errorf("failed to create program for '%s': %w", expression, err)
	}

	out, _, err := prg.Eval(contextMap)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression '%s': %w", expression, err)
	}

	truthy, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression '%s' did not produce a boolean", expression)
	}
	return truthy, nil
}

func (e *ConditionExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeCondition
}

func (e *ConditionExecutor) ValidateConfig(data map[string]any) error {
	node := flow.Node{Data: data}
	if _, ok := node.StringData("expression", "cel_expression"); ok {
		return nil
	}
	if len(node.StringListData("options", "branches", "opciones")) == 0 {
		return flow.ErrInvalidFlowDefinition().
			WithDetail("reason", "condition node has neither options nor an expression")
	}
	return nil
}
