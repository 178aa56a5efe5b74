package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/credentials"

	"github.com/coopahorro/dap/internal/application/usecase"
	"github.com/coopahorro/dap/internal/domain/port"
	"github.com/coopahorro/dap/internal/domain/service"
	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/internal/infrastructure/blob"
	"github.com/coopahorro/dap/internal/infrastructure/clock"
	"github.com/coopahorro/dap/internal/infrastructure/config"
	"github.com/coopahorro/dap/internal/infrastructure/lock"
	"github.com/coopahorro/dap/internal/infrastructure/outbox"
	"github.com/coopahorro/dap/internal/infrastructure/persistence/memory"
	infraPG "github.com/coopahorro/dap/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/coopahorro/dap/internal/presentation/grpc"
	"github.com/coopahorro/dap/internal/presentation/rest"
	"github.com/coopahorro/dap/pkg/auth"
	"github.com/coopahorro/dap/pkg/events"
	kafkapkg "github.com/coopahorro/dap/pkg/kafka"
	"github.com/coopahorro/dap/pkg/observability"
	pgpkg "github.com/coopahorro/dap/pkg/postgres"
	"github.com/coopahorro/dap/pkg/tlsutil"
)

const serviceName = "dapd"

// storage bundles the repositories of the selected backend.
type storage struct {
	deposits    port.DepositRepository
	attachments port.AttachmentRepository
	activations port.ActivationRepository
	tiers       port.TierSource
	outbox      events.OutboxRepository
	ready       rest.Pinger
	close       func()
}

// poolPinger reports database readiness for /readyz.
type poolPinger struct{ pool *pgxpool.Pool }

func (p poolPinger) Ping(ctx context.Context) error { return pgpkg.HealthCheck(ctx, p.pool) }

func main() {
	devCertDir := flag.String("gen-dev-cert", "", "write a development CA and server certificate into `dir` and exit")
	flag.Parse()

	if *devCertDir != "" {
		if err := tlsutil.GenerateSelfSignedCert([]string{"localhost", "127.0.0.1"}, *devCertDir); err != nil {
			slog.Error("generate development certificate", "error", err)
			os.Exit(1)
		}
		slog.Info("development certificate written", "dir", *devCertDir)
		return
	}

	if err := run(); err != nil {
		slog.Error("dapd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: serviceName,
	})
	logger.Info("starting dapd",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage", cfg.StorageBackend,
		"lock", cfg.Lock.Backend,
		"renewal", cfg.RenewalPolicy,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Enabled:      cfg.Telemetry.TracingEnabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.OTLPInsecure,
		SampleRatio:  cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.Telemetry.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics, err := usecase.NewMetrics(meterProvider.Meter("github.com/coopahorro/dap"))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	tiers, err := store.tiers.LoadTiers(ctx)
	if err != nil {
		return fmt.Errorf("load interest tiers: %w", err)
	}
	table, err := valueobject.NewTierTable(tiers)
	if err != nil {
		return fmt.Errorf("interest tier table: %w", err)
	}
	logger.Info("interest tiers loaded", "count", table.Len())

	locker, closeLocker, err := openLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	blobs, err := blob.NewFileStore(cfg.Blob.Root)
	if err != nil {
		return fmt.Errorf("open attachment store: %w", err)
	}

	clk := clock.System{}
	engine := service.NewSimulationEngine(service.NewInterestCalculator())
	var renewal service.RenewalPolicy = service.DisabledRenewal{}
	if cfg.RenewalPolicy == config.RenewalCapitalize {
		renewal = service.NewCapitalizingRenewal(engine)
	}
	ioTimeout := cfg.Blob.IOTimeout

	uc := grpcPresentation.UseCases{
		Simulate:           usecase.NewSimulate(engine, table, clk, logger, metrics),
		CreateDeposit:      usecase.NewCreateDeposit(engine, table, store.deposits, clk, logger, metrics),
		GetDeposit:         usecase.NewGetDeposit(store.deposits, clk),
		ListDeposits:       usecase.NewListDeposits(store.deposits, clk),
		RequestCollection:  usecase.NewRequestCollection(store.deposits, locker, clk, logger),
		ConfirmPayment:     usecase.NewConfirmPayment(store.deposits, locker, clk, logger),
		OverrideStatus:     usecase.NewOverrideStatus(store.deposits, locker, clk, logger),
		RenewDeposit:       usecase.NewRenewDeposit(store.deposits, locker, clk, renewal, table, logger, metrics),
		ActivateDeposit:    usecase.NewActivateDeposit(store.deposits, store.activations, locker, clk, logger, metrics),
		UploadAttachment:   usecase.NewUploadAttachment(store.deposits, store.attachments, blobs, locker, clk, ioTimeout, logger, metrics),
		DeleteAttachment:   usecase.NewDeleteAttachment(store.deposits, store.attachments, blobs, locker, clk, ioTimeout, logger, metrics),
		GetAttachmentLocks: usecase.NewGetAttachmentLocks(store.deposits, store.attachments),
		GetDocumentData:    usecase.NewGetDocumentData(store.deposits, clk, cfg.PaymentInstructions),
	}

	jwtSvc, err := newJWTService(cfg.JWT)
	if err != nil {
		return fmt.Errorf("initialize JWT service: %w", err)
	}

	var (
		grpcCreds credentials.TransportCredentials
		httpTLS   *tls.Config
	)
	if cfg.TLS.Enabled() {
		if grpcCreds, err = tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			return err
		}
		if httpTLS, err = tlsutil.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			return err
		}
	}

	handler := grpcPresentation.NewDepositHandler(uc, logger)
	grpcServer := grpcPresentation.NewServer(handler, jwtSvc, grpcPresentation.ServerConfig{
		Creds:      grpcCreds,
		Reflection: cfg.GRPCReflection,
	}, logger)

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: rest.NewRouter(rest.RouterConfig{
			AttachmentContent: usecase.NewGetAttachmentContent(store.deposits, store.attachments, blobs, ioTimeout),
			JWT:               jwtSvc,
			Ready:             store.ready,
			Metrics:           metricsHandler,
			AllowedOrigins:    cfg.CORSAllowedOrigins,
			Logger:            logger,
		}),
		TLSConfig:         httpTLS,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if cfg.Outbox.RelayEnabled {
		producer, err := kafkapkg.NewProducer(kafkapkg.Config{
			Brokers:       cfg.Kafka.Brokers,
			TLS:           cfg.Kafka.TLS,
			SASLEnabled:   cfg.Kafka.SASLEnabled(),
			SASLMechanism: cfg.Kafka.SASLMechanism,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
		})
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer producer.Close()

		relay := outbox.NewRelay(store.outbox, outbox.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger),
			clk, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, logger)
		go func() {
			if err := relay.Run(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("outbox relay: %w", err)
			}
		}()
	} else {
		logger.Warn("outbox relay disabled, events stay in the outbox")
	}

	go func() {
		if err := grpcServer.Serve(fmt.Sprintf(":%d", cfg.GRPCPort)); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort)
		var err error
		if httpTLS != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", "error", runErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	stopRelay()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	if err := observability.ShutdownMetrics(shutdownCtx, meterProvider); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", "error", err)
	}

	logger.Info("dapd stopped")
	return runErr
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		s := memory.NewStore()
		return storage{
			deposits:    s.Deposits(),
			attachments: s.Attachments(),
			activations: s.Activations(),
			tiers:       memory.TierSource{},
			outbox:      s.Outbox(),
			close:       func() {},
		}, nil
	}

	pgCfg := pgpkg.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}
	if err := pgpkg.RunMigrations(pgCfg.DSN(), cfg.DB.MigrationsPath); err != nil {
		return storage{}, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := pgpkg.NewPool(ctx, pgCfg)
	if err != nil {
		return storage{}, fmt.Errorf("connect to database: %w", err)
	}

	return storage{
		deposits:    infraPG.NewDepositRepo(pool),
		attachments: infraPG.NewAttachmentRepo(pool),
		activations: infraPG.NewActivationRepo(pool),
		tiers:       infraPG.NewTierRepo(pool),
		outbox:      infraPG.NewOutboxRepo(pool),
		ready:       poolPinger{pool: pool},
		close:       pool.Close,
	}, nil
}

func openLocker(cfg config.Config, logger *slog.Logger) (port.Locker, func(), error) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		return lock.NewKeyedLocker(), func() {}, nil
	}
	client, err := lock.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	locker := lock.NewRedisLocker(client, "dap:lock:", logger, lock.WithTTL(cfg.Lock.TTL))
	return locker, func() { closeRedis(client, logger) }, nil
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", "error", err)
	}
}

// newJWTService builds a validation-only service: public key preferred,
// shared secret as fallback.
func newJWTService(cfg config.JWTConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{Issuer: cfg.Issuer}
	if cfg.PublicKeyPath != "" {
		keyData, err := auth.LoadKeyFromFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	} else {
		jwtCfg.Secret = cfg.Secret
	}
	return auth.NewJWTService(jwtCfg)
}
