// StockWatch server: records stock purchases valued against historical
// end-of-day prices.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwatch/stockwatch/internal/auth"
	"github.com/stockwatch/stockwatch/internal/clientdata"
	"github.com/stockwatch/stockwatch/internal/clients/eodhd"
	"github.com/stockwatch/stockwatch/internal/config"
	"github.com/stockwatch/stockwatch/internal/database"
	"github.com/stockwatch/stockwatch/internal/modules/companies"
	companieshandlers "github.com/stockwatch/stockwatch/internal/modules/companies/handlers"
	"github.com/stockwatch/stockwatch/internal/modules/purchases"
	purchasehandlers "github.com/stockwatch/stockwatch/internal/modules/purchases/handlers"
	"github.com/stockwatch/stockwatch/internal/reliability"
	"github.com/stockwatch/stockwatch/internal/scheduler"
	"github.com/stockwatch/stockwatch/internal/server"
	"github.com/stockwatch/stockwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Str("data_dir", cfg.DataDir).Bool("dev_mode", cfg.DevMode).Msg("Starting StockWatch")

	appDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "stockwatch.db"),
		Profile: database.ProfileLedger,
		Name:    "stockwatch",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open application database")
	}
	defer appDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{appDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories and services
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	marketClient := eodhd.NewClient(cfg.EODHDBaseURL, cfg.EODHDAPIToken, cacheRepo, log)

	userRepo := auth.NewUserRepository(appDB.Conn())
	sessionStore := auth.NewSessionStore(appDB.Conn(), cfg.SessionTTL)
	authMiddleware := auth.NewMiddleware(sessionStore, userRepo)
	authHandler := auth.NewHandler(userRepo, sessionStore, cfg.SessionTTL, !cfg.DevMode, log)

	companiesRepo := companies.NewRepository(appDB.Conn())
	searchService := companies.NewSearchService(marketClient, log)
	companiesHandler := companieshandlers.NewHandler(companiesRepo, searchService, log)

	purchasesRepo := purchases.NewRepository(appDB.Conn())
	purchasesService := purchases.NewService(appDB.Conn(), purchasesRepo, companiesRepo, marketClient, log)
	purchasesHandler := purchasehandlers.NewHandler(purchasesService, log)

	if cfg.DevMode {
		bootstrapDevUser(userRepo, log)
	}

	// Background jobs
	sched := scheduler.New(log)

	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	if err := sched.AddJob("0 3 * * *", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	sessionCleanupJob := auth.NewSessionCleanupJob(sessionStore, log)
	if err := sched.AddJob("15 3 * * *", sessionCleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register session cleanup job")
	}

	var backupJob scheduler.Job
	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}
		backupService := reliability.NewBackupService(
			s3Client,
			map[string]*database.DB{"stockwatch": appDB, "client_data": cacheDB},
			cfg.DataDir,
			cfg.Backup.Retention,
			log,
		)
		job := reliability.NewBackupJob(backupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
		backupJob = job
	} else {
		log.Info().Msg("Cloud backups disabled (no bucket configured)")
	}

	sched.Start()
	defer sched.Stop()

	// Expired cache rows from previous runs go straight away rather than
	// waiting for tonight's schedule
	if err := sched.RunNow(cleanupJob); err != nil {
		log.Warn().Err(err).Msg("Startup cache cleanup failed")
	}

	systemHandlers := server.NewSystemHandlers(appDB, cacheDB, backupJob, log)

	srv := server.New(server.Config{
		Log:              log,
		Config:           cfg,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		CompaniesHandler: companiesHandler,
		PurchasesHandler: purchasesHandler,
		SystemHandlers:   systemHandlers,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// bootstrapDevUser seeds a login for local development when the users table
// is empty. Never runs outside dev mode.
func bootstrapDevUser(users *auth.UserRepository, log zerolog.Logger) {
	existing, err := users.GetByEmail("dev@stockwatch.local")
	if err != nil || existing != nil {
		return
	}

	firmID, err := users.CreateFirm("Development")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create dev firm")
		return
	}

	if _, err := users.CreateUser(firmID, "dev@stockwatch.local", "Developer", "devpassword"); err != nil {
		log.Warn().Err(err).Msg("Failed to create dev user")
		return
	}

	log.Info().Str("email", "dev@stockwatch.local").Msg("Seeded development login")
}
