package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vet-portal/internal/config"
	"github.com/jwalitptl/vet-portal/internal/email"
	accountHandler "github.com/jwalitptl/vet-portal/internal/handler/account"
	adminHandler "github.com/jwalitptl/vet-portal/internal/handler/admin"
	appointmentHandler "github.com/jwalitptl/vet-portal/internal/handler/appointment"
	"github.com/jwalitptl/vet-portal/internal/handler/health"
	newsletterHandler "github.com/jwalitptl/vet-portal/internal/handler/newsletter"
	petHandler "github.com/jwalitptl/vet-portal/internal/handler/pet"
	preappointmentHandler "github.com/jwalitptl/vet-portal/internal/handler/preappointment"
	preferencesHandler "github.com/jwalitptl/vet-portal/internal/handler/preferences"
	promHandler "github.com/jwalitptl/vet-portal/internal/handler/prometheus"
	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/repository"
	"github.com/jwalitptl/vet-portal/internal/repository/memory"
	redisKV "github.com/jwalitptl/vet-portal/internal/repository/redis"
	"github.com/jwalitptl/vet-portal/internal/repository/sqlkv"
	"github.com/jwalitptl/vet-portal/internal/router"
	accountService "github.com/jwalitptl/vet-portal/internal/service/account"
	appointmentService "github.com/jwalitptl/vet-portal/internal/service/appointment"
	intakeService "github.com/jwalitptl/vet-portal/internal/service/intake"
	newsletterService "github.com/jwalitptl/vet-portal/internal/service/newsletter"
	paymentService "github.com/jwalitptl/vet-portal/internal/service/payment"
	petService "github.com/jwalitptl/vet-portal/internal/service/pet"
	"github.com/jwalitptl/vet-portal/internal/store"
	"github.com/jwalitptl/vet-portal/pkg/auth"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/messaging"
	redisBroker "github.com/jwalitptl/vet-portal/pkg/messaging/redis"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
	"github.com/jwalitptl/vet-portal/pkg/security"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

// Storage is the durable layer chosen by configuration. Broker is set only for the
// redis backend, which also carries the change events.
type Storage struct {
	KV     repository.KV
	Broker messaging.Broker
}

func (s *Storage) Close() error {
	if s.Broker != nil {
		_ = s.Broker.Close()
	}
	return s.KV.Close()
}

// OpenStorage connects the configured backend.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Storage, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return &Storage{KV: memory.NewKV()}, nil
	case config.BackendRedis:
		kv, err := redisKV.NewKV(ctx, redisKV.Config{
			URL:             cfg.Redis.URL,
			MaxRetries:      cfg.Redis.MaxRetries,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			BreakerFailures: cfg.Redis.BreakerFailures,
			BreakerTimeout:  cfg.Redis.BreakerTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &Storage{KV: kv, Broker: redisBroker.NewRedisBroker(kv.Client(), &log.ZL)}, nil
	case config.BackendPostgres:
		kv, err := sqlkv.Open(ctx, sqlkv.DriverPostgres, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		return &Storage{KV: kv}, nil
	case config.BackendSQLite:
		kv, err := sqlkv.Open(ctx, sqlkv.DriverSQLite, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		return &Storage{KV: kv}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// DialBroker opens a change-event subscription connection to Redis.
func DialBroker(ctx context.Context, url string, log *logger.Logger) (messaging.Broker, error) {
	return redisBroker.DialRedisBroker(ctx, url, &log.ZL)
}

type Options struct {
	Config    *config.Config
	KV        repository.KV
	Publisher messaging.Publisher
	Mailer    email.Mailer
	Logger    *logger.Logger
	Now       func() time.Time
}

// App is the assembled process: store, services and HTTP router.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Metrics *metrics.Metrics
	Tokens  auth.JWTService
	Router  *router.Router

	Appointments *appointmentService.Service
	Payments     *paymentService.Service
	Intake       *intakeService.Service
	Accounts     *accountService.Service
	Pets         *petService.Service
	Newsletter   *newsletterService.Service
}

// New builds every component. The store is empty until Reload is called.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	m := metrics.New(cfg.Monitoring.Namespace)
	st := store.New(opts.KV, store.Options{
		Prefix:    cfg.Storage.Prefix,
		Logger:    log,
		Metrics:   m,
		Publisher: opts.Publisher,
		Now:       func() time.Time { return opts.Now().UTC() },
	})

	mailer := opts.Mailer
	if mailer == nil {
		if cfg.SMTP.Host != "" {
			mailer = email.NewSMTPMailer(email.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			})
		} else {
			mailer = email.NewLogMailer(log)
		}
	}

	v := validator.New()
	appointments := appointmentService.NewService(st, v, log, m, appointmentService.Options{
		Location:         loc,
		MediumWindowDays: cfg.Clinic.MediumWindowDays,
		Now:              opts.Now,
	})
	payments := paymentService.NewService(st, appointments, cfg.Payment.RejectionNotes, log, m)
	intake := intakeService.NewService(st, v, security.NewBcryptHasher(cfg.Intake.BcryptCost), log, m, intakeService.Options{
		DefaultPassword: cfg.Intake.DefaultPassword,
		Now:             opts.Now,
	})
	accounts := accountService.NewService(st, v, log, opts.Now)
	pets := petService.NewService(st, v, log, opts.Now)
	news := newsletterService.NewService(st, v, mailer, log, m, opts.Now)

	tokens := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	var metricsEndpoint gin.HandlerFunc
	if cfg.Monitoring.PrometheusEnabled {
		ph, err := promHandler.New(m)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		metricsEndpoint = ph.Handler()
	}

	r := router.NewRouter(
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			MetricsPath:      cfg.Monitoring.MetricsPath,
		},
		log,
		m,
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(st),
		metricsEndpoint,
		appointmentHandler.NewHandler(appointments, payments),
		preappointmentHandler.NewHandler(intake),
		petHandler.NewHandler(pets),
		accountHandler.NewHandler(accounts),
		preferencesHandler.NewHandler(st),
		newsletterHandler.NewHandler(news),
		adminHandler.NewHandler(st),
	)
	r.Setup()

	return &App{
		Config:       cfg,
		Store:        st,
		Metrics:      m,
		Tokens:       tokens,
		Router:       r,
		Appointments: appointments,
		Payments:     payments,
		Intake:       intake,
		Accounts:     accounts,
		Pets:         pets,
		Newsletter:   news,
	}, nil
}
