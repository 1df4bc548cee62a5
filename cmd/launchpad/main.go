package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"launchpad/internal/appmgr"
	"launchpad/internal/appsapi"
	"launchpad/internal/conf"
	"launchpad/internal/event"
	"launchpad/internal/gate"
	"launchpad/internal/outputs"
	"launchpad/internal/registry"
	"launchpad/internal/store"
	"launchpad/pkg/api"
)

func main() {
	cmd := newLaunchpadCommand()
	flag.Parse()
	defer glog.Flush()

	if err := cmd.Execute(); err != nil {
		glog.Fatalln(err)
	}
}

func newLaunchpadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launchpad",
		Short: "Application lifecycle orchestration",
		Long:  `Launchpad installs, tracks and reconciles apps on the apps api and guards access to them`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run()
		},
	}

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	return cmd
}

func Run() error {
	cfg, err := conf.FromEnv()
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Postgres.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	remote := appsapi.NewClient(cfg.AppsAPI)
	reg := registry.New(cfg.AuthMiddlewareName)

	events, err := event.NewPublisher(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer events.Close()

	parentID, err := parentInstanceID(cfg.InstanceID)
	if err != nil {
		return err
	}
	buffer := outputs.NewBuffer(remote, parentID, outputs.DefaultInterval)
	buffer.Start()
	defer buffer.Stop()

	mgr := appmgr.NewManager(db, remote, reg, buffer, events)
	gk := gate.NewGatekeeper(db, cfg.Keycloak.Issuer(), cfg.Keycloak.CertsURL(), newKeyCache(cfg.Redis))

	go seedAndConverge(ctx, cfg, db, reg, mgr)

	s := api.New(cfg.Server)
	if err := s.PrepareRun(mgr, gk); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		glog.Infof("received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return s.Shutdown(shutdownCtx)
}

// parentInstanceID parses the launchpad deployment's own app id. Newly
// installed apps are announced to this instance's output document; without
// it announcements go nowhere, so it is required.
func parentInstanceID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("LAUNCHPAD_INSTANCE_ID must be the launchpad app id: %w", err)
	}
	return id, nil
}

func newKeyCache(cfg conf.RedisConfig) gate.KeyCache {
	if !cfg.Enabled() {
		return gate.NewMemoryKeyCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return gate.NewRedisKeyCache(client)
}

// seedAndConverge upserts the template catalog and converges the internal
// apps in the background so a slow or unreachable apps api never blocks
// startup.
func seedAndConverge(ctx context.Context, cfg *conf.Config, db *store.Store, reg *registry.Registry, mgr *appmgr.Manager) {
	templates := registry.SeedTemplates(registry.Presets{
		LLMInference: cfg.Presets.LLMInference,
		Embeddings:   cfg.Presets.Embeddings,
		Postgres:     cfg.Presets.Postgres,
	})

	if cfg.SeedFile != "" {
		extra, err := registry.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			glog.Errorf("failed to load seed file: %v", err)
		} else {
			templates = append(templates, extra...)
		}
	}

	for i := range templates {
		t := &templates[i]
		if t.HandlerClass != nil && !reg.Known(*t.HandlerClass) {
			glog.Errorf("seed template %s names unknown handler class %s, skipped", t.Name, *t.HandlerClass)
			continue
		}
		if _, err := db.UpsertTemplate(ctx, t); err != nil {
			glog.Errorf("failed to seed template %s: %v", t.Name, err)
		}
	}

	mgr.InitInternalApps(ctx)
}
