package main

import (
	"fmt"

	"github.com/paydesk/mp-webhook-service/internal/config"
	"github.com/paydesk/mp-webhook-service/internal/logger"
	"github.com/paydesk/mp-webhook-service/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// One-shot schema migration. Run once before the server accepts traffic;
// the server itself never touches the schema.
func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	if err := gdb.AutoMigrate(&model.Empresa{}, &model.Evento{}, &model.OutboxEvent{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}
	log.Info("schema migrated")
}
