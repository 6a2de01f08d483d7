package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/database"
	"github.com/volunteerhub/volunteerhub/internal/logging"
	"github.com/volunteerhub/volunteerhub/internal/push"
	"github.com/volunteerhub/volunteerhub/internal/server"
)

func main() {
	generateKeys := flag.Bool("generate-vapid-keys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *generateKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		fmt.Printf("VOLUNTEERHUB_VAPID_PUBLIC_KEY=%s\n", pub)
		fmt.Printf("VOLUNTEERHUB_VAPID_PRIVATE_KEY=%s\n", priv)
		return
	}

	port := os.Getenv("VOLUNTEERHUB_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("VOLUNTEERHUB_DB_PATH")
	if dbPath == "" {
		dbPath = "volunteerhub.db"
	}

	jwtSecret := os.Getenv("VOLUNTEERHUB_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("VOLUNTEERHUB_JWT_SECRET is required")
	}

	logger := logging.Setup(os.Getenv("VOLUNTEERHUB_LOG_LEVEL"), os.Getenv("VOLUNTEERHUB_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret: jwtSecret,
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("VOLUNTEERHUB_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VOLUNTEERHUB_VAPID_PRIVATE_KEY"),
			Subscriber:      os.Getenv("VOLUNTEERHUB_VAPID_SUBSCRIBER"),
		},
	}
	if cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		logger.Warn("VAPID keys not configured; web push delivery is disabled")
	}

	srv := server.New(db, cfg, logger)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	srv.ExpirySweeper().Start(sweepCtx)
	defer sweepCancel()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("volunteerhub listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	srv.ExpirySweeper().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
