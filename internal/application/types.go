package application

import (
	"log/slog"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

type Config struct {
	ServiceName        string
	EventDedupTTL      time.Duration
	MaxConcurrentSends int
	SendTimeout        time.Duration
	MaxConcurrentSyncs int
	SyncLockTTL        time.Duration
	EnabledChannels    []domain.ChannelKind
}

// Actor is the authenticated caller context propagated by the gateway.
type Actor struct {
	SubjectID string
	TeamID    string
	Role      string
	RequestID string
}

type ListNotificationsInput struct {
	UserID   string
	Type     string
	Status   string
	Page     int
	PageSize int
}

// Service carries the HTTP-facing operations and event intake. The fan-out
// machinery (Dispatcher, SyncEngine, Orchestrator) is composed in, not owned.
type Service struct {
	cfg           Config
	logger        *slog.Logger
	notifications ports.NotificationRepository
	registry      ports.ConnectionRegistry
	emails        ports.InboundEmailRepository
	guard         *BlacklistGuard
	dispatcher    *Dispatcher
	orchestrator  *Orchestrator
	eventDedup    ports.EventDedupRepository
	dispatchLog   ports.DispatchLogRepository
	resolver      ports.RecipientResolver
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Logger        *slog.Logger
	Notifications ports.NotificationRepository
	Registry      ports.ConnectionRegistry
	Emails        ports.InboundEmailRepository
	Guard         *BlacklistGuard
	Dispatcher    *Dispatcher
	Orchestrator  *Orchestrator
	EventDedup    ports.EventDedupRepository
	DispatchLog   ports.DispatchLogRepository
	Resolver      ports.RecipientResolver
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "courier"
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           cfg,
		logger:        logger,
		notifications: deps.Notifications,
		registry:      deps.Registry,
		emails:        deps.Emails,
		guard:         deps.Guard,
		dispatcher:    deps.Dispatcher,
		orchestrator:  deps.Orchestrator,
		eventDedup:    deps.EventDedup,
		dispatchLog:   deps.DispatchLog,
		resolver:      deps.Resolver,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
