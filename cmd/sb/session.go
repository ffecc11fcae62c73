package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/config"
	"github.com/siteboard/siteboard/internal/db"
	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/reconcile"
	"github.com/siteboard/siteboard/internal/rules"
	"github.com/siteboard/siteboard/internal/store"
)

const defaultConfigPath = "siteboard.yaml"

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Database.Name, err)
	}

	return cfg, gormDB, nil
}

// loadBoard builds an in-memory board from a full store snapshot.
func loadBoard(ctx context.Context, st *store.Store) (*board.Board, *store.Snapshot, error) {
	snap, err := st.FetchAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	var engine *rules.Engine
	if len(snap.Rules) == 0 && len(snap.DropRules) == 0 {
		engine = rules.NewDefaultEngine()
	} else {
		engine, err = rules.NewEngine(snap.Rules, snap.DropRules)
		if err != nil {
			return nil, nil, err
		}
	}

	b := board.New(engine)
	b.Load(snap.Resources, snap.Jobs, snap.Assignments)
	for _, rc := range snap.RowConfigs {
		if err := b.SetJobRowConfig(rc); err != nil {
			return nil, nil, err
		}
	}
	return b, snap, nil
}

// withSession runs one scheduling operation against a board loaded from
// the store, with a short-lived reconciler loop to confirm it.
func withSession(configPath string, fn func(ctx context.Context, r *reconcile.Reconciler) error) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(gormDB, cfg.Client)
	b, _, err := loadBoard(ctx, st)
	if err != nil {
		return err
	}

	r, err := reconcile.New(reconcile.Opts{
		Board:             b,
		Store:             st,
		Actor:             cfg.Client,
		OrphanMaxAttempts: cfg.Feed.OrphanMaxAttempts,
		OrphanTTL:         cfg.Feed.OrphanTTL(),
	})
	if err != nil {
		return err
	}

	events := make(chan models.ChangeEvent)
	go r.Run(ctx, events)

	return fn(ctx, r)
}
