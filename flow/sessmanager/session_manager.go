package sessmanager

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/google/uuid"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// SessionManager implements flow.SessionManager
type SessionManager struct {
	repo                  flow.SessionRepository
	defaultExpirationTime time.Duration
}

// SessionManagerConfig configuration for session manager
type SessionManagerConfig struct {
	DefaultExpirationTime time.Duration // Default: 24 hours
}

var _ flow.SessionManager = (*SessionManager)(nil)

// NewSessionManager creates a new session manager
func NewSessionManager(repo flow.SessionRepository, config *SessionManagerConfig) *SessionManager {
	if config == nil {
		config = &SessionManagerConfig{}
	}
	if config.DefaultExpirationTime == 0 {
		config.DefaultExpirationTime = 24 * time.Hour
	}

	return &SessionManager{
		repo:                  repo,
		defaultExpirationTime: config.DefaultExpirationTime,
	}
}

// GetOrCreate obtains the open session for a user/channel pair or creates a
// fresh one bound to the tenant's active flow. Finished and expired sessions
// never get reused: a new conversation starts from the flow entry.
func (m *SessionManager) GetOrCreate(ctx context.Context, channelID kernel.ChannelID, senderID string, tenantID kernel.TenantID, flowID kernel.FlowID) (*flow.Session, error) {
	session, err := m.repo.FindOpenByChannelAndSender(ctx, channelID, senderID)
	if err == nil {
		if session.IsExpired() {
			if markErr := m.repo.MarkExpired(ctx, session.ID); markErr != nil {
				log.Printf("⚠️ failed to mark session %s expired: %v", session.ID.String(), markErr)
			}
			return m.createNewSession(ctx, channelID, senderID, tenantID, flowID)
		}
		if session.IsFinished() {
			return m.createNewSession(ctx, channelID, senderID, tenantID, flowID)
		}

		session.UpdateActivity()
		if err := m.repo.Save(ctx, *session); err != nil {
			return nil, errx.Wrap(err, "failed to update session activity", errx.TypeInternal).
				WithDetail("session_id", session.ID.String())
		}

		return session, nil
	}

	if errx.IsType(err, errx.TypeNotFound) {
		return m.createNewSession(ctx, channelID, senderID, tenantID, flowID)
	}

	return nil, errx.Wrap(err, "failed to find session", errx.TypeInternal)
}

// createNewSession creates and saves a new session
func (m *SessionManager) createNewSession(ctx context.Context, channelID kernel.ChannelID, senderID string, tenantID kernel.TenantID, flowID kernel.FlowID) (*flow.Session, error) {
	now := time.Now()

	session := &flow.Session{
		ID:             kernel.NewSessionID(uuid.New().String()),
		TenantID:       tenantID,
		ChannelID:      channelID,
		SenderID:       senderID,
		FlowID:         flowID,
		Context:        flow.NewExecContext(),
		Status:         flow.SessionStatusActive,
		ExpiresAt:      now.Add(m.defaultExpirationTime),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := m.repo.Save(ctx, *session); err != nil {
		return nil, errx.Wrap(err, "failed to create session", errx.TypeInternal).
			WithDetail("channel_id", channelID.String()).
			WithDetail("sender_id", senderID)
	}

	return session, nil
}

// Update updates the entire session
func (m *SessionManager) Update(ctx context.Context, session flow.Session) error {
	if !session.IsValid() {
		return errx.New("invalid session", errx.TypeValidation).
			WithDetail("session_id", session.ID.String())
	}

	if err := m.repo.Save(ctx, session); err != nil {
		return errx.Wrap(err, "failed to update session", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	return nil
}

// Get retrieves a session by ID
func (m *SessionManager) Get(ctx context.Context, sessionID kernel.SessionID) (*flow.Session, error) {
	session, err := m.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to get session", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}

	return session, nil
}

// ExtendSession extends the expiration time of a session
func (m *SessionManager) ExtendSession(ctx context.Context, sessionID kernel.SessionID) error {
	session, err := m.repo.FindByID(ctx, sessionID)
	if err != nil {
		return errx.Wrap(err, "failed to find session", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}

	session.ExtendExpiration(m.defaultExpirationTime)

	if err := m.repo.Save(ctx, *session); err != nil {
		return errx.Wrap(err, "failed to extend session", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}

	return nil
}

// SweepExpired marks every expired open session. Runs on a schedule; a
// swept session's next inbound message starts a new conversation.
func (m *SessionManager) SweepExpired(ctx context.Context) error {
	expired, err := m.repo.FindExpired(ctx)
	if err != nil {
		return errx.Wrap(err, "failed to list expired sessions", errx.TypeInternal)
	}

	for _, session := range expired {
		if err := m.repo.MarkExpired(ctx, session.ID); err != nil {
			log.Printf("⚠️ failed to mark session %s expired: %v", session.ID.String(), err)
			continue
		}
	}

	if len(expired) > 0 {
		log.Printf("🧹 Swept %d expired sessions", len(expired))
	}

	return nil
}
