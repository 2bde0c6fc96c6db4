package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coursedrop/coursedrop/internal/api"
	"github.com/coursedrop/coursedrop/internal/auth"
	"github.com/coursedrop/coursedrop/internal/blob"
	"github.com/coursedrop/coursedrop/internal/catalog"
	"github.com/coursedrop/coursedrop/internal/config"
	"github.com/coursedrop/coursedrop/internal/upload"
	"github.com/coursedrop/coursedrop/internal/uploadstore"
)

const sweepInterval = time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Catalog database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cat, err := catalog.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize catalog: %v", err)
	}

	// Object storage
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	region := cfg.S3Region
	if region == "" {
		region = awsCfg.Region
	}
	if cfg.S3Bucket == "" {
		log.Printf("Warning: S3_BUCKET not set; uploads will fail until storage is configured")
	}
	blobs := blob.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, region)

	// Durable upload session store
	sessions, err := uploadstore.NewBoltStore(cfg.SessionDBPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer sessions.Close()

	uploads := upload.NewService(sessions, blobs, cat, cfg.StorageWriteTimeout, cfg.SessionTTL)
	go uploads.RunSweeper(ctx, sweepInterval)

	signer := auth.NewSigner(cfg.AuthSecret)
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(uploads, cat, blobs, signer, cfg.AdminPassword).Router(),
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutdown signal received")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
