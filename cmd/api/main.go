package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"corkboard/internal/app"
	"corkboard/internal/config"
	"corkboard/internal/email"
	"corkboard/internal/media"
	"corkboard/internal/notify"
	"corkboard/internal/search"
	"corkboard/internal/session"
	"corkboard/internal/spamguard"
	"corkboard/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()
	ctx := context.Background()

	if cfg.AdminSecret == "" {
		log.Printf("WARNING: CORKBOARD_ADMIN_SECRET is empty, admin override is disabled")
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	dataStore := store.New(db)
	if err := dataStore.Migrate(ctx); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Printf("Using %s database", dataStore.Dialect())

	deps := app.Deps{
		Store:    dataStore,
		Mailer:   email.NewService(emailConfig(cfg)),
		Notifier: notify.New(cfg.SlackWebhookURL),
		Guard:    spamguard.New(cfg.PostInterval, cfg.PostBurst),
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	} else {
		log.Printf("Using the database for session storage")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	deps.Search = search.NewService(meiliClient, search.NewSQLSearch(dataStore))

	mediaConfig := media.Config{
		Endpoint:      cfg.MediaEndpoint,
		AccessKey:     cfg.MediaAccessKey,
		SecretKey:     cfg.MediaSecretKey,
		Bucket:        cfg.MediaBucket,
		UseSSL:        cfg.MediaUseSSL,
		PublicBaseURL: cfg.MediaPublicURL,
		Folder:        cfg.MediaFolder,
	}
	if mediaConfig.Enabled() {
		host, err := media.NewMinioHost(ctx, mediaConfig)
		if err != nil {
			log.Printf("WARNING: media host unavailable, attachments disabled: %v", err)
		} else {
			deps.Media = host
		}
	} else {
		log.Printf("Media host not configured, attachments disabled")
	}

	service := app.New(cfg, deps)
	if meiliClient != nil {
		go service.ReindexSearch(context.Background())
	}

	done := make(chan struct{})
	go deps.Guard.Run(done, 5*time.Minute)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("%s API listening on %s (posting policy: %s)", cfg.AppName, cfg.Addr, cfg.PostingPolicy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func emailConfig(cfg config.Config) email.Config {
	return email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		AppName:  cfg.AppName,
	}
}
