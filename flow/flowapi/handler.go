package flowapi

import (
	"log"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// FlowHandler maneja las peticiones HTTP de flujos y conversaciones
type FlowHandler struct {
	flowRepo    flow.FlowRepository
	sessionRepo flow.SessionRepository
	messageRepo flow.MessageRepository
	interpreter flow.Interpreter
	processor   flow.TurnProcessor
}

func NewFlowHandler(
	flowRepo flow.FlowRepository,
	sessionRepo flow.SessionRepository,
	messageRepo flow.MessageRepository,
	interpreter flow.Interpreter,
	processor flow.TurnProcessor,
) *FlowHandler {
	return &FlowHandler{
		flowRepo:    flowRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		interpreter: interpreter,
		processor:   processor,
	}
}

func tenantFromParams(c *fiber.Ctx) kernel.TenantID {
	return kernel.NewTenantID(c.Params("tenantId"))
}

// ============================================================================
// Flow CRUD
// ============================================================================

// CreateFlow crea un flujo nuevo
// POST /api/tenants/:tenantId/flows
func (h *FlowHandler) CreateFlow(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)

	var req flow.CreateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}
	req.TenantID = tenantID

	if req.Name == "" {
		return errx.New("flow name is required", errx.TypeValidation)
	}

	exists, err := h.flowRepo.ExistsByName(c.Context(), req.Name, tenantID)
	if err != nil {
		return err
	}
	if exists {
		return flow.ErrFlowAlreadyExists().WithDetail("name", req.Name)
	}

	if err := h.interpreter.ValidateFlow(c.Context(), flow.Flow{Definition: req.Definition}); err != nil {
		return err
	}

	now := time.Now()
	f := flow.Flow{
		ID:          kernel.NewFlowID(uuid.NewString()),
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.flowRepo.Save(c.Context(), f); err != nil {
		return err
	}

	log.Printf("✅ Flow created: %s (%s)", f.Name, f.ID.String())
	return c.Status(fiber.StatusCreated).JSON(f)
}

// GetFlow obtiene un flujo por ID
// GET /api/tenants/:tenantId/flows/:flowId
func (h *FlowHandler) GetFlow(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)
	flowID := kernel.NewFlowID(c.Params("flowId"))

	f, err := h.flowRepo.FindByID(c.Context(), flowID)
	if err != nil {
		return err
	}
	if f.TenantID != tenantID {
		return flow.ErrFlowNotFound().WithDetail("flow_id", flowID.String())
	}

	return c.JSON(f)
}

// ListFlows lista los flujos del tenant
// GET /api/tenants/:tenantId/flows
func (h *FlowHandler) ListFlows(c *fiber.Ctx) error {
	req := flow.FlowListRequest{
		TenantID: tenantFromParams(c),
		Search:   c.Query("search"),
	}
	req.Page = c.QueryInt("page", 1)
	req.PageSize = c.QueryInt("page_size", 20)

	if c.Query("is_active") != "" {
		isActive := c.QueryBool("is_active")
		req.IsActive = &isActive
	}

	resp, err := h.flowRepo.List(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

// UpdateFlow actualiza nombre, descripción, definición o estado
// PUT /api/tenants/:tenantId/flows/:flowId
func (h *FlowHandler) UpdateFlow(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)
	flowID := kernel.NewFlowID(c.Params("flowId"))

	var req flow.UpdateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}

	f, err := h.flowRepo.FindByID(c.Context(), flowID)
	if err != nil {
		return err
	}
	if f.TenantID != tenantID {
		return flow.ErrFlowNotFound().WithDetail("flow_id", flowID.String())
	}

	if req.Definition != nil {
		if err := h.interpreter.ValidateFlow(c.Context(), flow.Flow{Definition: *req.Definition}); err != nil {
			return err
		}
		f.UpdateDefinition(*req.Definition)
	}

	name := f.Name
	description := f.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	f.UpdateDetails(name, description)

	if req.IsActive != nil {
		if *req.IsActive {
			f.Activate()
		} else {
			f.Deactivate()
		}
	}

	if err := h.flowRepo.Save(c.Context(), *f); err != nil {
		return err
	}

	return c.JSON(f)
}

// DeleteFlow elimina un flujo
// DELETE /api/tenants/:tenantId/flows/:flowId
func (h *FlowHandler) DeleteFlow(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)
	flowID := kernel.NewFlowID(c.Params("flowId"))

	if err := h.flowRepo.Delete(c.Context(), flowID, tenantID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ============================================================================
// Validation
// ============================================================================

// ValidateFlow valida una definición sin persistirla; responde los errores
// estructurales y el diagnóstico de resolución del mensaje inicial.
// POST /api/tenants/:tenantId/flows/validate
func (h *FlowHandler) ValidateFlow(c *fiber.Ctx) error {
	var req flow.ValidateFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}

	resp := flow.ValidateFlowResponse{IsValid: true}

	if err := h.interpreter.ValidateFlow(c.Context(), flow.Flow{Definition: req.Definition}); err != nil {
		resp.IsValid = false
		resp.Errors = append(resp.Errors, err.Error())
	}

	for _, node := range req.Definition.Nodes {
		if !node.IsKnown() {
			resp.Warnings = append(resp.Warnings,
				"unknown node type '"+string(node.Type)+"' on node "+node.ID)
		}
	}

	if initial, err := flow.FindInitialMessage(&req.Definition); err == nil {
		resp.InitialBranch = string(initial.Branch)
		resp.InitialTrace = &initial.Trace
	} else {
		resp.Warnings = append(resp.Warnings, "no initial message could be resolved")
	}

	return c.JSON(resp)
}

// ============================================================================
// Inbound messages
// ============================================================================

// ReceiveMessage es el webhook de mensajes entrantes: corre el turno de
// forma síncrona y devuelve el buffer saliente al canal.
// POST /api/tenants/:tenantId/messages
func (h *FlowHandler) ReceiveMessage(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)

	var req flow.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}
	if req.ChannelID.IsEmpty() || req.SenderID == "" {
		return errx.New("channel_id and sender_id are required", errx.TypeValidation)
	}
	if req.MessageID.IsEmpty() {
		req.MessageID = kernel.NewMessageID(uuid.NewString())
	}

	now := time.Now()
	msg := flow.Message{
		ID:        req.MessageID,
		TenantID:  tenantID,
		ChannelID: req.ChannelID,
		SenderID:  req.SenderID,
		Direction: flow.DirectionInbound,
		Text:      req.Text,
		Status:    flow.MessageStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	log.Printf("📨 Inbound message %s from %s via %s", msg.ID.String(), msg.SenderID, msg.ChannelID.String())

	result, err := h.processor.ProcessMessage(c.Context(), msg)
	if err != nil {
		return err
	}

	return c.JSON(flow.TurnResponse{
		SessionID: result.SessionID,
		Status:    result.Status,
		Messages:  result.Messages,
	})
}

// ============================================================================
// Sessions & transcript
// ============================================================================

// ListSessions lista las sesiones del tenant
// GET /api/tenants/:tenantId/sessions
func (h *FlowHandler) ListSessions(c *fiber.Ctx) error {
	req := flow.SessionListRequest{TenantID: tenantFromParams(c)}
	req.Page = c.QueryInt("page", 1)
	req.PageSize = c.QueryInt("page_size", 20)

	if statusQuery := c.Query("status"); statusQuery != "" {
		status := flow.SessionStatus(statusQuery)
		req.Status = &status
	}

	resp, err := h.sessionRepo.List(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

// GetSession obtiene una sesión por ID
// GET /api/tenants/:tenantId/sessions/:sessionId
func (h *FlowHandler) GetSession(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)
	sessionID := kernel.NewSessionID(c.Params("sessionId"))

	session, err := h.sessionRepo.FindByID(c.Context(), sessionID)
	if err != nil {
		return err
	}
	if session.TenantID != tenantID {
		return flow.ErrSessionNotFound().WithDetail("session_id", sessionID.String())
	}

	return c.JSON(session)
}

// GetTranscript devuelve el transcript completo de una sesión
// GET /api/tenants/:tenantId/sessions/:sessionId/messages
func (h *FlowHandler) GetTranscript(c *fiber.Ctx) error {
	tenantID := tenantFromParams(c)
	sessionID := kernel.NewSessionID(c.Params("sessionId"))

	session, err := h.sessionRepo.FindByID(c.Context(), sessionID)
	if err != nil {
		return err
	}
	if session.TenantID != tenantID {
		return flow.ErrSessionNotFound().WithDetail("session_id", sessionID.String())
	}

	messages, err := h.messageRepo.FindBySession(c.Context(), sessionID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID.String(),
		"messages":   messages,
	})
}
