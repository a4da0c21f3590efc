// Package app wires configuration, storage and services into the HTTP server.
package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lmscert/config"
	controllers "lmscert/controllers/certificate"
	"lmscert/middleware"
	"lmscert/repository"
	"lmscert/routers/certificateRoutes"
	"lmscert/services"
	"lmscert/utils"
)

// App holds the long-lived components of one running instance.
type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Repo     *repository.Repository
	Platform *repository.Platform
	Settings *services.Settings
	Metrics  *services.Metrics

	Submissions  *services.SubmissionService
	Issuance     *services.IssuanceService
	Verification *services.VerificationService
}

// Options replaces collaborators that otherwise come from configuration.
type Options struct {
	Mailer  services.Mailer
	Captcha services.CaptchaVerifier
	Clock   func() time.Time
}

func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger, opts Options) (*App, error) {
	if opts.Mailer == nil {
		mailer, err := utils.NewMailer(cfg, log)
		if err != nil {
			return nil, err
		}
		opts.Mailer = mailer
	}
	if opts.Captcha == nil {
		opts.Captcha = utils.NewTurnstileVerifier(cfg.TurnstileURL)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	repo := repository.New(db)
	platform := repository.NewPlatform(db)
	settings := services.NewSettings(repo.Settings(), log)
	metrics := services.NewMetrics()
	notifier := services.NewNotifier(opts.Mailer, settings, log, opts.Clock)

	return &App{
		Config:   cfg,
		Log:      log,
		Repo:     repo,
		Platform: platform,
		Settings: settings,
		Metrics:  metrics,
		Submissions: services.NewSubmissionService(services.SubmissionDeps{
			Repo:        repo,
			Eligibility: services.NewEligibilityChecker(platform, opts.Clock),
			IDs:         services.NewIDGenerator(opts.Clock),
			Directory:   platform,
			Notifier:    notifier,
			Captcha:     opts.Captcha,
			Metrics:     metrics,
			Log:         log,
			Clock:       opts.Clock,
		}),
		Issuance: services.NewIssuanceService(services.IssuanceDeps{
			Repo:              repo,
			Renderer:          services.NewHTMLRenderer(settings, platform),
			Blobs:             utils.NewLocalBlobStore(cfg.StorageDir, cfg.StorageBaseURL),
			Notifier:          notifier,
			Metrics:           metrics,
			Log:               log,
			Clock:             opts.Clock,
			GenerationTimeout: cfg.GenerationTimeout,
			EmailTimeout:      cfg.EmailTimeout,
		}),
		Verification: services.NewVerificationService(repo, opts.Captcha, metrics, log, opts.Clock),
	}, nil
}

// Server builds the Fiber application with every route mounted.
func (a *App) Server() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: services.MaxUploadSize + 1<<20,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Generated and uploaded certificates, served under STORAGE_BASE_URL
	app.Static("/uploads", a.Config.StorageDir)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{})))

	h := &controllers.Handler{
		Submissions:  a.Submissions,
		Issuance:     a.Issuance,
		Verification: a.Verification,
		Settings:     a.Settings,
		Log:          a.Log,
	}
	certificateRoutes.SetupCertificateRoutes(app, h, a.Platform, middleware.NewIPRateLimiter(a.Config.VerifyRatePerMin))
	certificateRoutes.SetupAdminRoutes(app, h, a.Platform)

	return app
}
