package main

import (
	"context"
	"flag"
	"log"

	"github.com/VoltaShop-io/voltashop/internal/api"
	"github.com/VoltaShop-io/voltashop/internal/auth"
	"github.com/VoltaShop-io/voltashop/internal/config"
	"github.com/VoltaShop-io/voltashop/internal/database"
	"github.com/VoltaShop-io/voltashop/internal/geoip"
	"github.com/VoltaShop-io/voltashop/internal/mail"
	"github.com/VoltaShop-io/voltashop/internal/storage"
)

const version = "0.0.1"

func initializeAPI(configPath string) (*api.Api, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	teardown := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	tokens := auth.NewTokenManager(
		cfg.Tokens.AccessSecret, cfg.Tokens.RefreshSecret,
		cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL, cfg.Tokens.RefreshTTLExtended,
		cfg.Tokens.ActionTTL,
	)

	var sender mail.Sender = mail.LogSender{}
	if cfg.IsProd() {
		sender = &mail.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}
	}

	var uploader auth.Uploader
	if cfg.S3.Bucket != "" {
		s3Client, err := storage.NewS3Client(context.Background(), cfg)
		if err != nil {
			teardown()
			return nil, nil, err
		}
		uploader = s3Client
	}

	var locator auth.IPLocator = auth.NoopLocator{}
	if cfg.IPInfo.Token != "" {
		locator = geoip.NewIPInfoLocator(cfg.IPInfo.Token)
	}

	sessions := auth.NewSQLSessionStore(db, cfg.Database.Driver)

	service := auth.NewService(auth.ServiceOptions{
		Users:       auth.NewSQLUserStore(db, cfg.Database.Driver),
		Sessions:    sessions,
		Tokens:      tokens,
		Mailer:      mail.New(sender, cfg.ClientURL),
		Uploader:    uploader,
		Google:      auth.NewGoogleIDTokenVerifier(cfg.Google.ClientID),
		Locator:     locator,
		MaxSessions: cfg.MaxSessions,
	})

	a, err := api.NewApi(cfg, service, sessions, tokens)
	if err != nil {
		teardown()
		return nil, nil, err
	}
	return a, teardown, nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting VoltaShop auth API v%s with config: %s", version, *configPath)

	a, teardown, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer teardown()

	log.Fatal(a.Serve())
}
