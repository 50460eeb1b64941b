package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/engine"
	"github.com/tariktoplu/Opti-LogistiX/internal/store"
)

// cmdEnv bundles the engine with its archive so commands can tear both down.
type cmdEnv struct {
	Engine  *engine.Engine
	Archive store.Store
}

func initEngine(ctx context.Context) (*cmdEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &cmdEnv{Engine: eng, Archive: st}, nil
}

func (e *cmdEnv) Close() {
	if err := e.Archive.Close(); err != nil {
		zap.L().Warn("archive close failed", zap.Error(err))
	}
}

// activateFlag reactivates an archived scenario when the command carries a
// --scenario flag, so one-shot commands can route against saved damage.
func activateFlag(ctx context.Context, env *cmdEnv, scenarioID string) error {
	if scenarioID == "" {
		return nil
	}
	_, err := env.Engine.ReactivateArchived(ctx, scenarioID)
	return err
}
