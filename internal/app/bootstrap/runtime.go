package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/seido-app/courier/internal/adapters/cache"
	"github.com/seido-app/courier/internal/adapters/channels"
	"github.com/seido-app/courier/internal/adapters/directory"
	eventadapter "github.com/seido-app/courier/internal/adapters/events"
	httpadapter "github.com/seido-app/courier/internal/adapters/http"
	imapadapter "github.com/seido-app/courier/internal/adapters/imap"
	"github.com/seido-app/courier/internal/adapters/postgres"
	pushadapter "github.com/seido-app/courier/internal/adapters/push"
	"github.com/seido-app/courier/internal/adapters/security"
	smtpadapter "github.com/seido-app/courier/internal/adapters/smtp"
	s3adapter "github.com/seido-app/courier/internal/adapters/storage/s3"
	"github.com/seido-app/courier/internal/application"
	"github.com/seido-app/courier/internal/contracts"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

type Runtime struct {
	cfg          Config
	logger       *slog.Logger
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcLis      net.Listener
	service      *application.Service
	orchestrator *application.Orchestrator
	eventDedup   *postgres.EventDedupRepository
	consumerFn   func() (ports.EventConsumer, error)
	cleanupFn    func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping courier service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(db)

	cipher, err := security.NewCredentialCipher(cfg.CredentialKey)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}

	var storage ports.ObjectStorage
	if cfg.S3Bucket != "" {
		s3Client, s3Err := s3adapter.New(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
		if s3Err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init object storage: %w", s3Err)
		}
		storage = s3Client
	} else {
		logger.Warn("no object storage configured, attachments will be dropped")
	}

	var emailSender ports.EmailSender
	smtpClient := smtpadapter.New(smtpadapter.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if smtpClient.Configured() {
		emailSender = smtpClient
	}

	var pushSender ports.PushSender
	if cfg.PushEndpoint != "" {
		pushSender = pushadapter.New(pushadapter.Config{
			Endpoint:  cfg.PushEndpoint,
			ServerKey: cfg.PushServerKey,
		})
	}

	adapters := []ports.ChannelAdapter{
		channels.NewInAppAdapter(repos.Notifications),
		channels.NewEmailAdapter(emailSender),
		channels.NewPushAdapter(pushSender),
	}

	enabled := make([]domain.ChannelKind, 0, len(cfg.EnabledChannels))
	for _, raw := range cfg.EnabledChannels {
		kind := domain.ChannelKind(raw)
		for _, known := range domain.AllChannels() {
			if kind == known {
				enabled = append(enabled, kind)
				break
			}
		}
	}

	dispatcher := application.NewDispatcher(logger, adapters, enabled, cfg.MaxConcurrentSends, cfg.SendTimeout)
	guard := application.NewBlacklistGuard(logger, repos.Blacklist,
		cacheadapter.NewRedisBlacklistCache(redisClient, cfg.BlacklistCacheTTL))
	dialer := imapadapter.NewDialer(cfg.IMAPDialTimeout, cfg.IMAPCommandTimeout)
	engine := application.NewSyncEngine(logger, repos.Connections, repos.Emails, guard, dialer, storage, cipher)
	orchestrator := application.NewOrchestrator(logger, repos.Connections, engine,
		cacheadapter.NewRedisSyncLockStore(redisClient), cfg.MaxConcurrentSyncs, cfg.SyncLockTTL)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:        cfg.ServiceID,
			EventDedupTTL:      cfg.EventDedupTTL,
			MaxConcurrentSends: cfg.MaxConcurrentSends,
			SendTimeout:        cfg.SendTimeout,
			MaxConcurrentSyncs: cfg.MaxConcurrentSyncs,
			SyncLockTTL:        cfg.SyncLockTTL,
			EnabledChannels:    enabled,
		},
		Logger:        logger,
		Notifications: repos.Notifications,
		Registry:      repos.Connections,
		Emails:        repos.Emails,
		Guard:         guard,
		Dispatcher:    dispatcher,
		Orchestrator:  orchestrator,
		EventDedup:    repos.EventDedup,
		DispatchLog:   repos.DispatchLog,
		Resolver:      directory.NewHTTPResolver(cfg.DirectoryURL, cfg.DirectoryTimeout),
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:          cfg,
		logger:       logger,
		httpServer:   httpServer,
		grpcServer:   grpcServer,
		grpcLis:      lis,
		service:      svc,
		orchestrator: orchestrator,
		eventDedup:   repos.EventDedup,
		consumerFn: func() (ports.EventConsumer, error) {
			return eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopics)
		},
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the two background loops: event intake from the bus and
// the periodic mailbox sync sweep.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := r.consumerFn()
	if err != nil {
		return fmt.Errorf("init event consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("event intake loop started", "topics", r.cfg.KafkaTopics)
		errCh <- r.runIntake(ctx, consumer)
	}()
	go func() {
		r.logger.Info("mailbox sync loop started", "interval", r.cfg.SyncInterval.String())
		r.orchestrator.Run(ctx, r.cfg.SyncInterval)
	}()
	go r.runDedupSweep(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func (r *Runtime) runIntake(ctx context.Context, consumer ports.EventConsumer) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		messages, err := consumer.Poll(ctx, r.cfg.PollBatch)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Error("event poll failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}
		for _, msg := range messages {
			var envelope contracts.EventEnvelope
			if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
				r.logger.Warn("malformed event payload dropped", "topic", msg.Topic, "error", err)
				continue
			}
			if err := r.service.HandleEnvelope(ctx, envelope); err != nil {
				switch {
				case errors.Is(err, domain.ErrInvalidEnvelope), errors.Is(err, domain.ErrUnsupportedEvent):
					r.logger.Warn("event rejected",
						"event_id", envelope.EventID,
						"event_type", envelope.EventType,
						"error", err,
					)
				default:
					r.logger.Error("event handling failed",
						"event_id", envelope.EventID,
						"event_type", envelope.EventType,
						"error", err,
					)
				}
			}
		}
	}
}

func (r *Runtime) runDedupSweep(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.DedupSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.eventDedup.Sweep(ctx, time.Now().UTC())
			if err != nil {
				r.logger.Error("dedup sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				r.logger.Info("dedup sweep completed", "removed", removed)
			}
		}
	}
}
