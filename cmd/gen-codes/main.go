package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/database"
	"github.com/selekta/portal-backend/internal/logger"
	"github.com/selekta/portal-backend/internal/repository"
	"github.com/selekta/portal-backend/internal/service"
)

func main() {
	var (
		count  int
		prefix string
	)
	flag.IntVar(&count, "count", 10, "How many codes to generate")
	flag.StringVar(&prefix, "prefix", "", "Optional code prefix (e.g. TES)")
	flag.Parse()

	if count < 1 || count > 500 {
		fmt.Println("Error: count must be between 1 and 500")
		return
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	codeRepo := repository.NewInvitationCodeRepository(pool)
	accessService := service.NewAccessService(codeRepo, nil, nil, nil, log)

	codes, inserted, err := accessService.GenerateCodes(ctx, count, prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate codes")
	}

	fmt.Printf("=== Generated %d invitation codes ===\n", inserted)
	for _, code := range codes {
		fmt.Println(code)
	}
}
