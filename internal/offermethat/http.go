// Package offermethat is the core of the OfferMeThat service: dynamic offer
// and lead capture forms for property agents. It holds the question catalog,
// the sub-question generator, the submission validator and transformer, and
// the HTTP API that ties them together.
package offermethat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/config"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/cronmanager"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/maintenance"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type Services struct {
	db      *gorm.DB
	storage filestorage.FileStorage
}

var cfg *config.Config
var appVersion string

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "OfferMeThat")
		return next(c)
	}
}

func Server(db *gorm.DB, c *config.Config, version string) {
	cfg = c
	appVersion = version

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	storage, err := filestorage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucketName)
	if err != nil {
		slog.Error("Fail init Minio connection", "err", err)
		os.Exit(1)
	}

	dao.FileStorage = storage

	jobRegistry := cronmanager.JobRegistry{
		"assets_clean": cronmanager.Job{
			Func:     maintenance.NewAssetCleaner(db, storage).CleanAssets,
			Schedule: "0 1 * * *", // daily at 01:00
		},
		"test_records_clean": cronmanager.Job{
			Func:     maintenance.NewRecordCleaner(db).CleanTestRecords,
			Schedule: "30 1 * * *", // daily at 01:30
		},
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}

	s := &Services{
		db:      db,
		storage: storage,
	}

	cronManager.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		os.Exit(0)
	}()

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "5M",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/auth/listings/:listingId/photos/" ||
				c.Path() == "/api/forms/:username/:kind/" ||
				c.Path() == "/api/auth/users/me/avatar/"
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
	}))
	e.Use(echoprometheus.NewMiddleware("offermethat"))
	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return strings.Contains(c.Request().URL.Path, cfg.MinioBucketName)
		},
	}))

	e.Validator = NewRequestValidator()

	AddAuthenticationServices(db, e, []byte(cfg.SecretKey))

	apiGroup := e.Group("/api/")

	authGroup := apiGroup.Group("auth/",
		AuthMiddleware(AuthConfig{
			Secret: []byte(cfg.SecretKey),
			DB:     db,
		}),
		DemoMiddleware,
	)

	s.AddUserServices(authGroup)
	s.AddListingServices(authGroup)
	s.AddFormServices(authGroup)
	s.AddRecordServices(authGroup)

	// services without auth
	s.AddPublicFormServices(apiGroup)

	// Version endpoint
	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version": version,
			"sign_up": cfg.SignUpEnable,
			"demo":    cfg.Demo,
		})
	})

	// Health endpoint
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Get minio file
	apiGroup.GET("file/:fileName/", s.redirectToFile)

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "offermethat",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":2112"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(":8080"); err != nil {
		slog.Error("Server fail", "err", err)
	}
}

// redirectToFile sends the client to a short-lived signed object URL.
func (s *Services) redirectToFile(c echo.Context) error {
	id, err := uuid.FromString(c.Param("fileName"))
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}

	url, err := s.storage.SignedURL(id, time.Duration(cfg.SignedURLTTL)*time.Second)
	if err != nil {
		return EError(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}
