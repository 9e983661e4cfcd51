package nodeexec

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/leads"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/google/uuid"
)

// urgencyMarkers are the words that score a free-text answer as urgent.
var urgencyMarkers = []string{
	"urgente", "urgent", "ya", "ahora", "hoy", "inmediato", "cuanto antes", "asap",
}

// LeadQualExecutor califica un prospecto a partir de sus respuestas libres y
// lo reporta al CRM.
type LeadQualExecutor struct {
	crm     leads.CRM
	timeout time.Duration
}

var _ flow.NodeExecutor = (*LeadQualExecutor)(nil)

func NewLeadQualExecutor(crm leads.CRM, timeout time.Duration) *LeadQualExecutor {
	return &LeadQualExecutor{crm: crm, timeout: timeout}
}

func (e *LeadQualExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	questions := node.StringListData("questions", "qualification_questions")
	if len(questions) == 0 {
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "No pude evaluar tu solicitud en este momento.",
		}, nil
	}

	answers := e.collectAnswers(execCtx, questions)
	score := 0
	for i := range answers {
		if answerIsUrgent(answers[i].Answer) {
			answers[i].Score = 1
			score++
		}
	}

	minScore := fields.Int((len(questions)+1)/2, "min_score", "minScore")
	qualification := leads.QualificationNotQualified
	branch := flow.BranchNotQualified
	if score >= minScore {
		qualification = leads.QualificationQualified
		branch = flow.BranchQualified
	}

	lead := leads.Lead{
		ID:            kernel.NewLeadID(uuid.New().String()),
		TenantID:      tenantID,
		SessionID:     kernel.NewSessionID(execCtx.GetString("session_id")),
		SenderID:      execCtx.GetString("sender_id"),
		Name:          fields.String("client_name", "nombre", "name"),
		Phone:         fields.String("client_phone", "telefono", "phone"),
		Qualification: qualification,
		Score:         score,
		Answers:       answers,
		CreatedAt:     time.Now(),
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.crm.SubmitLead(callCtx, lead); err != nil {
		log.Printf("⚠️ lead submit failed for tenant %s: %v", tenantID.String(), err)
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "No pude registrar tu solicitud en este momento. Intenta de nuevo más tarde.",
		}, nil
	}

	result := execCtx.Clone()
	result.Set("lead_id", lead.ID.String())
	result.Set("lead_score", score)
	result.Set("lead_qualification", string(qualification))

	return &flow.ExecResult{NextBranch: branch, Context: result}, nil
}

// collectAnswers reads the captured answer variables: answer_1..answer_N,
// tolerating the respuesta_N spelling older flows used.
func (e *LeadQualExecutor) collectAnswers(execCtx *flow.ExecContext, questions []string) []leads.Answer {
	answers := make([]leads.Answer, 0, len(questions))
	for i, question := range questions {
		var text string
		for _, key := range []string{
			fmt.Sprintf("answer_%d", i+1),
			fmt.Sprintf("respuesta_%d", i+1),
		} {
			if v := execCtx.GetString(key); v != "" {
				text = v
				break
			}
		}
		answers = append(answers, leads.Answer{Question: question, Answer: text})
	}
	return answers
}

func answerIsUrgent(answer string) bool {
	lower := strings.ToLower(answer)
	words := strings.Fields(lower)
	for _, marker := range urgencyMarkers {
		// Short markers match whole words only; "ya" must not fire on "playa".
		if len(marker) <= 3 {
			for _, w := range words {
				if strings.Trim(w, ".,!?¡¿") == marker {
					return true
				}
			}
			continue
		}
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (e *LeadQualExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeLeadQual
}

func (e *LeadQualExecutor) ValidateConfig(data map[string]any) error {
	node := flow.Node{Data: data}
	if len(node.StringListData("questions", "qualification_questions")) == 0 {
		return flow.ErrInvalidFlowDefinition().
			WithDetail("reason", "lead qualification node has no questions")
	}
	return nil
}
