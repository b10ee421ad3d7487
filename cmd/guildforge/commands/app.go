package commands

import (
	"context"
	"fmt"

	"github.com/guildforge/guildforge/pkg/leveling"
	"github.com/guildforge/guildforge/pkg/overhaul"
	"github.com/guildforge/guildforge/pkg/panel"
	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/stores"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

// app bundles the wired components the commands share. The platform
// client here is the in-process simulator: the CLI rehearses and inspects
// runs; a hosting process supplies the real transport to the same engine
// API.
type app struct {
	store    *stores.SQLiteStore
	log      *telemetry.Logger
	metrics  *telemetry.Metrics
	client   remote.Client
	sim      *remote.Simulator
	executor *overhaul.Executor
	levels   *leveling.Engine
	panels   *panel.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Format = "console"
	cfg.Metrics.Enabled = false

	log, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	metrics, err := telemetry.NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("building metrics: %w", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: storePath})
	if err != nil {
		return nil, fmt.Errorf("building store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	sim := remote.NewSimulator()
	limiter := remote.NewLimiter(50, 10, metrics)
	client := remote.NewThrottled(sim, limiter, metrics)

	a := &app{
		store:   store,
		log:     log,
		metrics: metrics,
		client:  client,
		sim:     sim,
	}
	a.executor = overhaul.NewExecutor(client, store, log, metrics, overhaul.ExecutorOptions{})
	a.executor.RegisterDefaultModules()
	a.levels = leveling.NewEngine(client, store, log, metrics)
	a.panels = panel.NewManager(client, store, log, metrics)
	a.executor.RegisterModule(overhaul.FeatureReactionRoles, panelModule{a.panels})
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// prepareGuild registers the target guild with the simulator and declares
// the engine's own member identity, which the preflight checks for.
func (a *app) prepareGuild(guildID string) {
	a.sim.AddGuild(guildID)
	a.sim.SetBotMember(guildID, "guildforge-bot")
}

// panelModule adapts the panel manager into the executor's module-setup
// step: seed an entry per non-protected role template, then publish.
type panelModule struct {
	panels *panel.Manager
}

func (p panelModule) Setup(ctx context.Context, guildID string, ids overhaul.IDMap, cfg overhaul.StepPayload, _ *overhaul.RunStats) error {
	for _, rt := range cfg.Roles {
		if rt.Protected {
			continue
		}
		id, ok := ids.RoleID(rt.Name)
		if !ok {
			continue
		}
		if err := p.panels.AddRole(ctx, guildID, id, "general", rt.Name, ""); err != nil {
			return err
		}
	}
	return p.panels.Publish(ctx, guildID)
}
