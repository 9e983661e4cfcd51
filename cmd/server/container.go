package main

import (
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/dialogo-labs/dialogo/catalog"
	"github.com/dialogo-labs/dialogo/catalog/cataloginfra"
	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/flow/flowapi"
	"github.com/dialogo-labs/dialogo/flow/flowinfra"
	"github.com/dialogo-labs/dialogo/flow/flowinterp"
	"github.com/dialogo-labs/dialogo/flow/msgprocessor"
	"github.com/dialogo-labs/dialogo/flow/nodeexec"
	"github.com/dialogo-labs/dialogo/flow/sesslock"
	"github.com/dialogo-labs/dialogo/flow/sessmanager"
	"github.com/dialogo-labs/dialogo/flow/sesssweep"
	"github.com/dialogo-labs/dialogo/leads"
	"github.com/dialogo-labs/dialogo/leads/leadsinfra"
	"github.com/dialogo-labs/dialogo/pkg/config"
	"github.com/dialogo-labs/dialogo/scheduling"
	"github.com/dialogo-labs/dialogo/scheduling/schedulinginfra"
	"github.com/dialogo-labs/dialogo/textgen"
	"github.com/dialogo-labs/dialogo/textgen/textgeninfra"
)

// Container contains all application dependencies
type Container struct {
	// =================================================================
	// CONFIGURATION & INFRASTRUCTURE
	// =================================================================
	Config      *config.Config
	DB          *sqlx.DB
	RedisClient *redis.Client

	// =================================================================
	// REPOSITORIES
	// =================================================================
	FlowRepo    flow.FlowRepository
	SessionRepo flow.SessionRepository
	MessageRepo flow.MessageRepository

	// =================================================================
	// SIDE-EFFECT PROVIDERS
	// =================================================================
	SchedulingService scheduling.Service
	AssetResolver     catalog.AssetResolver
	CatalogLookup     catalog.Lookup
	LeadCRM           leads.CRM
	TextGenerator     textgen.Generator

	// =================================================================
	// ENGINE
	// =================================================================
	SessionManager   flow.SessionManager
	SessionLocker    flow.SessionLocker
	Interpreter      flow.Interpreter
	Responder        flow.Responder
	MessageProcessor flow.TurnProcessor
	Sweeper          *sesssweep.Sweeper

	// =================================================================
	// API
	// =================================================================
	FlowHandler *flowapi.FlowHandler
	FlowRoutes  *flowapi.FlowRoutes
}

// NewContainer construye todas las dependencias de la aplicación
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) *Container {
	c := &Container{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
	}

	// =================================================================
	// REPOSITORIES
	// =================================================================
	c.FlowRepo = flowinfra.NewPostgresFlowRepository(db)
	c.SessionRepo = flowinfra.NewPostgresSessionRepository(db)
	c.MessageRepo = flowinfra.NewPostgresMessageRepository(db)
	log.Println("  ✓ Repositories initialized")

	// =================================================================
	// SIDE-EFFECT PROVIDERS
	// =================================================================
	c.SchedulingService = schedulinginfra.NewHTTPSchedulingService(cfg.Scheduling)
	c.AssetResolver = cataloginfra.NewS3AssetResolver(cfg.Catalog)
	c.CatalogLookup = cataloginfra.NewHTTPCatalogLookup(cfg.Catalog, c.AssetResolver)
	c.LeadCRM = leadsinfra.NewHTTPLeadCRM(cfg.CRM.BaseURL, cfg.CRM.APIKey, cfg.CRM.Timeout)
	c.TextGenerator = textgeninfra.NewOpenAIGenerator(cfg.OpenAI)
	log.Println("  ✓ Side-effect providers initialized")

	// =================================================================
	// ENGINE
	// =================================================================
	c.SessionManager = sessmanager.NewSessionManager(c.SessionRepo, &sessmanager.SessionManagerConfig{
		DefaultExpirationTime: cfg.Engine.SessionTTL,
	})
	c.SessionLocker = sesslock.NewRedisSessionLocker(redisClient, cfg.Engine.TurnLockTTL)

	timeout := cfg.Engine.ExecutorTimeout
	c.Interpreter = flowinterp.NewFlowInterpreter(
		cfg.Engine.HopBudget,
		nodeexec.NewConditionExecutor(),
		nodeexec.NewTextGenExecutor(c.TextGenerator, timeout),
		nodeexec.NewAvailabilityExecutor(c.SchedulingService, timeout),
		nodeexec.NewBookExecutor(c.SchedulingService, timeout),
		nodeexec.NewRescheduleExecutor(c.SchedulingService, timeout),
		nodeexec.NewCancelExecutor(c.SchedulingService, timeout),
		nodeexec.NewLeadQualExecutor(c.LeadCRM, timeout),
		nodeexec.NewCatalogExecutor(c.CatalogLookup, timeout),
	)

	c.Responder = flowinfra.NewWebhookResponder(cfg.Channels.WebhookURL, cfg.Channels.APIKey)

	c.MessageProcessor = msgprocessor.NewMessageProcessor(
		c.MessageRepo,
		c.FlowRepo,
		c.SessionManager,
		c.Interpreter,
		c.SessionLocker,
		c.Responder,
	)

	c.Sweeper = sesssweep.NewSweeper(c.SessionManager, sesssweep.DefaultSchedule)
	log.Println("  ✓ Engine initialized")

	// =================================================================
	// API
	// =================================================================
	c.FlowHandler = flowapi.NewFlowHandler(
		c.FlowRepo,
		c.SessionRepo,
		c.MessageRepo,
		c.Interpreter,
		c.MessageProcessor,
	)
	c.FlowRoutes = flowapi.NewFlowRoutes(c.FlowHandler)
	log.Println("  ✓ API handlers initialized")

	return c
}

func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.Sweeper != nil {
		log.Println("  ⏰ Stopping session sweeper...")
		c.Sweeper.Stop()
	}

	if c.DB != nil {
		log.Println("  🗄️  Closing database connections...")
		c.DB.Close()
	}

	if c.RedisClient != nil {
		log.Println("  🔴 Closing Redis connections...")
		c.RedisClient.Close()
	}

	log.Println("✅ Container cleanup complete")
}

func (c *Container) HealthCheck() map[string]bool {
	health := make(map[string]bool)

	if c.DB != nil {
		err := c.DB.Ping()
		health["database"] = err == nil
	} else {
		health["database"] = false
	}

	if c.RedisClient != nil {
		err := c.RedisClient.Ping(c.RedisClient.Context()).Err()
		health["redis"] = err == nil
	} else {
		health["redis"] = false
	}

	health["interpreter"] = c.Interpreter != nil
	health["message_processor"] = c.MessageProcessor != nil
	health["session_manager"] = c.SessionManager != nil
	health["sweeper"] = c.Sweeper != nil

	return health
}

func (c *Container) GetServiceNames() []string {
	return []string{
		"SessionManager",
		"SessionLocker",
		"Interpreter",
		"MessageProcessor",
		"SchedulingService",
		"CatalogLookup",
		"LeadCRM",
		"TextGenerator",
		"Sweeper",
	}
}

func (c *Container) GetRepositoryNames() []string {
	return []string{
		"FlowRepo",
		"SessionRepo",
		"MessageRepo",
	}
}
