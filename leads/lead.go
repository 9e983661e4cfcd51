package leads

import (
	"time"

	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Lead Entities
// ============================================================================

// Qualification resultado de la calificación conversacional
type Qualification string

const (
	QualificationQualified    Qualification = "QUALIFIED"
	QualificationNotQualified Qualification = "NOT_QUALIFIED"
)

// Answer es la respuesta libre del usuario a una pregunta de calificación
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
}

// Lead es el prospecto que se reporta al CRM
type Lead struct {
	ID            kernel.LeadID    `json:"id"`
	TenantID      kernel.TenantID  `json:"tenant_id"`
	SessionID     kernel.SessionID `json:"session_id"`
	SenderID      string           `json:"sender_id"`
	Name          string           `json:"name,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	Qualification Qualification    `json:"qualification"`
	Score         int              `json:"score"`
	Answers       []Answer         `json:"answers,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
