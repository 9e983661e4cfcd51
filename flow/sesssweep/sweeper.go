package sesssweep

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/dialogo-labs/dialogo/flow"
)

// DefaultSchedule barre sesiones vencidas cada cinco minutos.
const DefaultSchedule = "@every 5m"

// Sweeper cierra periódicamente las sesiones vencidas para que el próximo
// mensaje de esos usuarios arranque una conversación nueva.
type Sweeper struct {
	manager  flow.SessionManager
	schedule string
	cron     *cron.Cron
}

func NewSweeper(manager flow.SessionManager, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and launches the cron loop.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.manager.SweepExpired(context.Background()); err != nil {
			log.Printf("⚠️ session sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("⏰ Session sweeper started (%s)", s.schedule)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏹️  Session sweeper stopped")
}
