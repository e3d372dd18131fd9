// Entrypoint of the OfferMeThat server: loads configuration, connects to
// Postgres, migrates the models and starts the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/config"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/gormlogger"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/OfferMeThat/OfferMeThat-sub002/pkg/limiter"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

var models = []any{
	&dao.User{},
	&dao.FileAsset{},
	&dao.Listing{},
	&dao.ListingSeller{},
	&dao.ListingPhoto{},
	&dao.Form{},
	&dao.FormPage{},
	&dao.FormQuestion{},
	&dao.FormAttachment{},
	&dao.Offer{},
	&dao.Lead{},
}

func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()
	dao.Config = cfg

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	limiter.Init(cfg)

	slog.Info("OfferMeThat start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		slog.Info("Migrate models")
		if err := db.AutoMigrate(models...); err != nil {
			slog.Error("Migration failed", "err", err)
			os.Exit(1)
		}
	}

	var usersExist bool
	if err := db.Model(&dao.User{}).
		Select("EXISTS(?)",
			db.Model(&dao.User{}).Select("1"),
		).
		Find(&usersExist).Error; err != nil {
		slog.Error("Fail count users in DB", "err", err)
		os.Exit(1)
	}

	if !usersExist && cfg.DefaultUserEmail != "" {
		slog.Info("Creating default user", "email", cfg.DefaultUserEmail)
		if user := dao.AddDefaultUser(db, cfg.DefaultUserEmail); user != nil {
			if _, err := offermethat.ProvisionForm(db, user, types.FormKindOffer); err != nil {
				slog.Error("Provision default offer form", "err", err)
			}
			if _, err := offermethat.ProvisionForm(db, user, types.FormKindLead); err != nil {
				slog.Error("Provision default lead form", "err", err)
			}
		}
	}

	offermethat.Server(db, cfg, version)
}

func PrintBanner() {
	banner := `
  ___   __  __           __  __     _____ _         _
 / _ \ / _|/ _| ___ _ _ |  \/  |___|_   _| |_  __ _| |_
| (_) |  _|  _/ -_) '_|| |\/| / -_) | | | ' \/ _  |  _|
 \___/|_| |_| \___|_|   |_|  |_\___| |_| |_||_\__,_|\__| %s
Offer and lead capture forms for property agents
%s
--------------------------------------------------------
`
	colorReset := "\033[0m"

	colorYellow := "\033[33m"
	colorBlue := "\033[34m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion, colorBlue+"https://offermethat.com"+colorReset)
}
