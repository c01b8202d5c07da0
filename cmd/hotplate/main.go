// Command hotplate runs the local-deals coupon marketplace server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/hotplate-app/hotplate/internal/app"
	"github.com/hotplate-app/hotplate/internal/config"
	"github.com/hotplate-app/hotplate/internal/logging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config.yaml")
		migrateOnly = flag.Bool("migrate", false, "run migrations and exit")
	)
	flag.Parse()

	cfg, errLoad := config.Load(config.ResolveConfigPath(*configPath))
	if errLoad != nil {
		log.Fatalf("load config: %v", errLoad)
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			log.Fatalf("migrate: %v", errMigrate)
		}
		log.Info("migrations complete")
		return
	}

	if errRun := app.RunServer(ctx, cfg); errRun != nil {
		log.Fatalf("server: %v", errRun)
	}
	log.Info("server stopped")
}
