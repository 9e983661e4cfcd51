package flowinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Abraxas-365/craftable/errx"

	"github.com/dialogo-labs/dialogo/flow"
)

// WebhookResponder entrega los mensajes salientes del turno a la capa de
// canales vía un webhook HTTP. Con URL vacía los mensajes solo se loguean;
// útil en desarrollo y en tests de integración.
type WebhookResponder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ flow.Responder = (*WebhookResponder)(nil)

func NewWebhookResponder(baseURL, apiKey string) *WebhookResponder {
	return &WebhookResponder{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type outboundPayload struct {
	ChannelID   string   `json:"channel_id"`
	RecipientID string   `json:"recipient_id"`
	SessionID   string   `json:"session_id"`
	Messages    []string `json:"messages"`
}

func (r *WebhookResponder) SendMessages(ctx context.Context, session *flow.Session, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	if r.baseURL == "" {
		for _, text := range texts {
			log.Printf("💬 [%s -> %s] %s", session.ChannelID.String(), session.SenderID, text)
		}
		return nil
	}

	payload := outboundPayload{
		ChannelID:   session.ChannelID.String(),
		RecipientID: session.SenderID,
		SessionID:   session.ID.String(),
		Messages:    texts,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errx.Wrap(err, "failed to marshal outbound payload", errx.TypeInternal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return errx.Wrap(err, "failed to build outbound request", errx.TypeInternal)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return errx.Wrap(err, "failed to deliver outbound messages", errx.TypeInternal).
			WithDetail("channel_id", session.ChannelID.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errx.New(fmt.Sprintf("channel webhook returned %d", resp.StatusCode), errx.TypeExternal).
			WithDetail("channel_id", session.ChannelID.String()).
			WithDetail("response", string(detail))
	}

	return nil
}
