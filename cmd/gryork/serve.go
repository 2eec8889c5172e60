package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gryork/internal/audit"
	"gryork/internal/careers"
	"gryork/internal/cases"
	"gryork/internal/db"
	"gryork/internal/events"
	"gryork/internal/seed"
	"gryork/internal/sequence"
	"gryork/internal/server"
	"gryork/internal/sla"
	"gryork/internal/store"
	"gryork/internal/store/memory"
	"gryork/internal/validation"
	"gryork/pkg/types"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "Keep all state in process memory instead of Postgres (local development only)",
		},
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the database schema before serving",
		},
	},
	Action: serve,
}

type partnerDirectory interface {
	cases.Directory
	server.NBFCLister
}

// backend is the set of repositories the services run on.
type backend struct {
	cases   cases.Store
	nbfcs   partnerDirectory
	audit   audit.Store
	careers careers.Store
	numbers sequence.Allocator
	close   []func()
}

func (b *backend) shutdown() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

func memoryBackend(ctx context.Context, logger *logrus.Logger) (*backend, error) {
	mem := memory.New()
	if _, err := seed.SeedNBFCs(ctx, mem, seed.Partners, nil, logger); err != nil {
		return nil, err
	}

	logger.Warn("serving from memory: nothing is persisted")

	return &backend{cases: mem, nbfcs: mem, audit: mem, careers: mem, numbers: mem}, nil
}

func postgresBackend(ctx context.Context, config *types.Config, logger *logrus.Logger, migrate bool) (*backend, error) {
	pool, err := connect(ctx, config)
	if err != nil {
		return nil, err
	}

	b := &backend{
		cases:   store.NewCaseRepository(pool),
		nbfcs:   store.NewNBFCRepository(pool),
		audit:   store.NewAuditLogRepository(pool),
		careers: store.NewCareerApplicationRepository(pool),
		numbers: store.NewCaseNumberSequence(pool),
		close:   []func(){pool.Close},
	}

	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			b.shutdown()
			return nil, err
		}
		logger.Info("schema applied")
	}

	if config.RedisURL != "" {
		client, err := sequence.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			b.shutdown()
			return nil, err
		}
		b.numbers = sequence.NewRedisAllocator(client)
		b.close = append(b.close, func() { _ = client.Close() })
		logger.Info("allocating case numbers from redis")
	}

	return b, nil
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}

	var b *backend
	if cCtx.Bool("memory") {
		b, err = memoryBackend(ctx, logger)
	} else {
		b, err = postgresBackend(ctx, config, logger, cCtx.Bool("migrate"))
	}
	if err != nil {
		return err
	}
	defer b.shutdown()

	tracker, err := sla.LoadTracker(config.SLAConfigPath)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Discard{}
	if len(config.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.WithError(err).Error("failed to close kafka writer")
			}
		}()
		publisher = kafkaPublisher
	} else {
		logger.Warn("KAFKA_BROKERS not set: case events are dropped")
	}

	jwksURL := config.JWKSURL()
	if jwksURL == "" {
		return fmt.Errorf("set AUTH_ISSUER_URL or AUTH_JWKS_URL")
	}

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	if err := jwkCache.Register(ctx, jwksURL); err != nil {
		return fmt.Errorf("failed to register jwks with cache: %w", err)
	}

	authenticator, err := server.NewJWTAuthenticator(config, jwkCache)
	if err != nil {
		return err
	}

	validator, err := validation.New()
	if err != nil {
		return err
	}

	auditWriter := audit.NewWriter(b.audit, logger)

	caseService := cases.New(cases.Deps{
		Store:   b.cases,
		NBFCs:   b.nbfcs,
		Numbers: b.numbers,
		Audit:   auditWriter,
		Events:  publisher,
		Tracker: tracker,
		Logger:  logger,
	})

	srv := server.New(
		config,
		logger,
		authenticator,
		caseService,
		careers.New(b.careers, auditWriter),
		auditWriter,
		b.nbfcs,
		validator,
	)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
