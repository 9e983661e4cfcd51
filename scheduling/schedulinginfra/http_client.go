package schedulinginfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/dialogo-labs/dialogo/pkg/config"
	"github.com/dialogo-labs/dialogo/scheduling"
)

// HTTPSchedulingService habla con la API de agendamiento del tenant.
type HTTPSchedulingService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ scheduling.Service = (*HTTPSchedulingService)(nil)

func NewHTTPSchedulingService(cfg config.SchedulingConfig) *HTTPSchedulingService {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSchedulingService{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSchedulingService) Availability(ctx context.Context, query scheduling.AvailabilityQuery) (*scheduling.Availability, error) {
	params := url.Values{}
	params.Set("tenant_id", query.TenantID.String())
	params.Set("date", query.Date)
	if query.TypeID != "" {
		params.Set("type_id", query.TypeID)
	}
	if query.LocationID != "" {
		params.Set("location_id", query.LocationID)
	}
	if query.AgentID != "" {
		params.Set("agent_id", query.AgentID)
	}

	var availability scheduling.Availability
	if err := s.do(ctx, http.MethodGet, "/availability?"+params.Encode(), nil, &availability); err != nil {
		return nil, err
	}
	return &availability, nil
}

func (s *HTTPSchedulingService) Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Appointment, error) {
	var appointment scheduling.Appointment
	if err := s.do(ctx, http.MethodPost, "/appointments", req, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (s *HTTPSchedulingService) Reschedule(ctx context.Context, req scheduling.RescheduleRequest) (*scheduling.Appointment, error) {
	path := fmt.Sprintf("/appointments/%s/reschedule", req.AppointmentID.String())
	var appointment scheduling.Appointment
	if err := s.do(ctx, http.MethodPost, path, req, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (s *HTTPSchedulingService) Cancel(ctx context.Context, req scheduling.CancelRequest) error {
	path := fmt.Sprintf("/appointments/%s/cancel", req.AppointmentID.String())
	return s.do(ctx, http.MethodPost, path, req, nil)
}

// do runs one JSON request against the scheduling API and maps the status
// code onto the domain error registry.
func (s *HTTPSchedulingService) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errx.Wrap(err, "failed to marshal scheduling request", errx.TypeInternal)
		}
		bodyReader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return errx.Wrap(err, "failed to create scheduling request", errx.TypeInternal)
	}
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return scheduling.ErrServiceUnavailable().WithDetail("cause", err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errx.Wrap(err, "failed to decode scheduling response", errx.TypeExternal)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return scheduling.ErrAppointmentNotFound().WithDetail("path", path)
	case resp.StatusCode == http.StatusConflict:
		return scheduling.ErrSlotTaken().WithDetail("path", path)
	case resp.StatusCode == http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return scheduling.ErrUnknownResource().WithDetail("body", string(detail))
	default:
		return scheduling.ErrServiceUnavailable().
			WithDetail("status", fmt.Sprint(resp.StatusCode)).
			WithDetail("path", path)
	}
}
