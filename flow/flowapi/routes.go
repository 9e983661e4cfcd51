package flowapi

import (
	"github.com/gofiber/fiber/v2"
)

// FlowRoutes configura las rutas del motor de flujos
type FlowRoutes struct {
	handler *FlowHandler
}

func NewFlowRoutes(handler *FlowHandler) *FlowRoutes {
	return &FlowRoutes{handler: handler}
}

// RegisterRoutes configura todas las rutas del dominio
func (fr *FlowRoutes) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/tenants/:tenantId")

	// ==========================================
	// FLOW ROUTES
	// ==========================================
	flows := api.Group("/flows")
	flows.Post("/", fr.handler.CreateFlow)
	flows.Get("/", fr.handler.ListFlows)
	flows.Post("/validate", fr.handler.ValidateFlow)
	flows.Get("/:flowId", fr.handler.GetFlow)
	flows.Put("/:flowId", fr.handler.UpdateFlow)
	flows.Delete("/:flowId", fr.handler.DeleteFlow)

	// ==========================================
	// INBOUND MESSAGE WEBHOOK
	// ==========================================
	api.Post("/messages", fr.handler.ReceiveMessage)

	// ==========================================
	// SESSION ROUTES
	// ==========================================
	sessions := api.Group("/sessions")
	sessions.Get("/", fr.handler.ListSessions)
	sessions.Get("/:sessionId", fr.handler.GetSession)
	sessions.Get("/:sessionId/messages", fr.handler.GetTranscript)
}
