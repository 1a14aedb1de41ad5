package app

import (
	"context"
	"time"

	"github.com/mufasadev/transfers/internal/config"
	"github.com/mufasadev/transfers/internal/domain/models"
)

type StalePendingHandler interface {
	Execute(ctx context.Context) ([]*models.Transaction, error)
}

type StalePendingProcess struct {
	handler StalePendingHandler
	config  config.Process
}

func NewStalePendingProcess(h StalePendingHandler, cfg config.Process) *StalePendingProcess {
	return &StalePendingProcess{handler: h, config: cfg}
}

// Run executes the stale pending report every configured interval until ctx is done.
func (p *StalePendingProcess) Run(ctx context.Context) {
	p.run(ctx, p.config.Every())
}

func (p *StalePendingProcess) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			timeout, cancel := context.WithTimeout(ctx, 5*time.Second)
			p.handler.Execute(timeout)
			cancel()
		}
	}
}
