package flow

import (
	"time"

	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Session Entity
// ============================================================================

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusSuspended SessionStatus = "SUSPENDED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Session es una conversación lógica que puede abarcar muchas entregas de
// mensajes independientes. The interpreter owns all mutations; nothing else
// moves the node pointer.
type Session struct {
	ID             kernel.SessionID
	TenantID       kernel.TenantID
	ChannelID      kernel.ChannelID
	SenderID       string
	FlowID         kernel.FlowID
	CurrentNodeID  string
	Context        *ExecContext
	Status         SessionStatus
	// WaitingVariable is the context variable the next inbound message binds
	// to while the session is suspended.
	WaitingVariable string
	TurnCount       int
	ExpiresAt       time.Time
	CreatedAt       time.Time
	LastActivityAt  time.Time
	ClosedAt        *time.Time
}

// IsValid verifica si la sesión es válida
func (s *Session) IsValid() bool {
	return !s.ID.IsEmpty() && !s.ChannelID.IsEmpty() && s.SenderID != ""
}

// IsExpired verifica si la sesión ha expirado
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsFinished reports whether the session reached a terminal state.
func (s *Session) IsFinished() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}

// UpdateActivity actualiza la última actividad
func (s *Session) UpdateActivity() {
	s.LastActivityAt = time.Now()
}

// MoveTo advances the node pointer within an active turn.
func (s *Session) MoveTo(nodeID string) {
	s.CurrentNodeID = nodeID
	s.Status = SessionStatusActive
	s.WaitingVariable = ""
	s.UpdateActivity()
}

// Suspend parks the session at nodeID waiting for the next inbound message,
// optionally binding it to a capture variable.
func (s *Session) Suspend(nodeID, variable string) {
	s.CurrentNodeID = nodeID
	s.Status = SessionStatusSuspended
	s.WaitingVariable = variable
	s.UpdateActivity()
}

// Complete marks the session as finished by an end node.
func (s *Session) Complete() {
	s.Status = SessionStatusCompleted
	now := time.Now()
	s.ClosedAt = &now
	s.UpdateActivity()
}

// Fail marks the session as unrecoverable after a structural error.
func (s *Session) Fail() {
	s.Status = SessionStatusFailed
	now := time.Now()
	s.ClosedAt = &now
	s.UpdateActivity()
}

// SetContext establece una variable de contexto
func (s *Session) SetContext(key string, value any) {
	if s.Context == nil {
		s.Context = NewExecContext()
	}
	s.Context.Set(key, value)
	s.UpdateActivity()
}

// GetContext obtiene un valor del contexto
func (s *Session) GetContext(key string) (any, bool) {
	if s.Context == nil {
		return nil, false
	}
	return s.Context.Get(key)
}

// ExtendExpiration extiende la expiración de la sesión
func (s *Session) ExtendExpiration(duration time.Duration) {
	s.ExpiresAt = time.Now().Add(duration)
	s.UpdateActivity()
}

// ============================================================================
// Message Entity (transcript)
// ============================================================================

// MessageDirection sentido del mensaje en el transcript
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "IN"
	DirectionOutbound MessageDirection = "OUT"
)

// MessageStatus estado de procesamiento de un mensaje entrante
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "PENDING"
	MessageStatusProcessing MessageStatus = "PROCESSING"
	MessageStatusProcessed  MessageStatus = "PROCESSED"
	MessageStatusFailed     MessageStatus = "FAILED"
)

// Message es una entrada del transcript de la conversación
type Message struct {
	ID        kernel.MessageID `db:"id" json:"id"`
	TenantID  kernel.TenantID  `db:"tenant_id" json:"tenant_id"`
	SessionID kernel.SessionID `db:"session_id" json:"session_id"`
	ChannelID kernel.ChannelID `db:"channel_id" json:"channel_id"`
	SenderID  string           `db:"sender_id" json:"sender_id"`
	Direction MessageDirection `db:"direction" json:"direction"`
	Text      string           `db:"text" json:"text"`
	Status    MessageStatus    `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// IsValid verifica si el mensaje es válido
func (m *Message) IsValid() bool {
	return !m.ID.IsEmpty() && !m.ChannelID.IsEmpty() && m.SenderID != ""
}

// MarkAsProcessing marca el mensaje como en procesamiento
func (m *Message) MarkAsProcessing() {
	m.Status = MessageStatusProcessing
	m.UpdatedAt = time.Now()
}

// MarkAsProcessed marca el mensaje como procesado
func (m *Message) MarkAsProcessed() {
	m.Status = MessageStatusProcessed
	m.UpdatedAt = time.Now()
}

// MarkAsFailed marca el mensaje como fallido
func (m *Message) MarkAsFailed() {
	m.Status = MessageStatusFailed
	m.UpdatedAt = time.Now()
}
