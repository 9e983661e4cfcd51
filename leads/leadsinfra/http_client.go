package leadsinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/dialogo-labs/dialogo/leads"
)

// HTTPLeadCRM reporta prospectos calificados al CRM del tenant.
type HTTPLeadCRM struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ leads.CRM = (*HTTPLeadCRM)(nil)

func NewHTTPLeadCRM(baseURL, apiKey string, timeout time.Duration) *HTTPLeadCRM {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLeadCRM{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPLeadCRM) SubmitLead(ctx context.Context, lead leads.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return errx.Wrap(err, "failed to marshal lead", errx.TypeInternal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leads", bytes.NewBuffer(payload))
	if err != nil {
		return errx.Wrap(err, "failed to create lead request", errx.TypeInternal)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return leads.ErrCRMUnavailable().WithDetail("cause", err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return leads.ErrLeadRejected().WithDetail("lead_id", lead.ID.String())
	default:
		return leads.ErrCRMUnavailable().WithDetail("status", fmt.Sprint(resp.StatusCode))
	}
}
