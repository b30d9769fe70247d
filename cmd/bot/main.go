// bot runs the referral-gated Telegram bot: long-poll updates, dispatch them through the interceptor chain,
// and serve liveness, readiness and metrics over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"referral-gate-bot/internal/audit"
	auditrepo "referral-gate-bot/internal/audit/repository"
	"referral-gate-bot/internal/bot/handler"
	"referral-gate-bot/internal/broadcast"
	"referral-gate-bot/internal/channel"
	"referral-gate-bot/internal/config"
	contentrepo "referral-gate-bot/internal/content/repository"
	contentservice "referral-gate-bot/internal/content/service"
	"referral-gate-bot/internal/db"
	"referral-gate-bot/internal/gate"
	"referral-gate-bot/internal/gateway/telegram"
	healthhandler "referral-gate-bot/internal/health/handler"
	"referral-gate-bot/internal/ingestion"
	"referral-gate-bot/internal/logging"
	membershipcache "referral-gate-bot/internal/membership/cache"
	"referral-gate-bot/internal/membership/oracle"
	"referral-gate-bot/internal/metrics"
	settingsrepo "referral-gate-bot/internal/platformsettings/repository"
	"referral-gate-bot/internal/policy/engine"
	referralservice "referral-gate-bot/internal/referral/service"
	"referral-gate-bot/internal/server"
	"referral-gate-bot/internal/server/interceptors"
	"referral-gate-bot/internal/telemetry"
	telemetryotel "referral-gate-bot/internal/telemetry/otel"
	"referral-gate-bot/internal/telemetry/producer"
	userrepo "referral-gate-bot/internal/user/repository"
	userservice "referral-gate-bot/internal/user/service"
)

const serviceVersion = "0.1.0"

// Admin commands that only read state are not written to the audit log.
var unauditedCommands = map[string]bool{
	"/start":    true,
	"/channels": true,
	"/stats":    true,
}

// stores groups the repositories; Postgres when DATABASE_URL is set, otherwise in-memory.
type stores struct {
	users    userservice.Store
	content  contentrepo.Repository
	settings settingsrepo.Repository
	audit    auditrepo.Repository
	conn     *sql.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set; create a .env from .env.example or set BOT_TOKEN")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, serviceVersion, cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("otel setup failed", zap.Error(err))
	}
	providers.SetGlobal()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("db setup failed", zap.Error(err))
	}
	if st.conn != nil {
		defer st.conn.Close()
	}

	emitter := telemetry.Multi{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokerList(), cfg.EventsTopic)
	if err != nil {
		logger.Fatal("kafka setup failed", zap.Error(err))
	}
	if kafkaProducer != nil {
		emitter = append(emitter, kafkaProducer)
		defer kafkaProducer.Close()
		logger.Info("publishing domain events to kafka", zap.String("topic", cfg.EventsTopic))
	}

	tg, err := telegram.New(cfg.BotToken, logger)
	if err != nil {
		logger.Fatal("telegram setup failed", zap.Error(err))
	}

	var redisClient *redis.Client
	oracleOpts := []oracle.Option{oracle.WithTimeout(cfg.MembershipQueryTimeout()), oracle.WithLogger(logger)}
	if cfg.RedisURL != "" {
		redisClient, err = membershipcache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis setup failed", zap.Error(err))
		}
		defer redisClient.Close()
		oracleOpts = append(oracleOpts, oracle.WithCache(membershipcache.NewRedisCache(redisClient, cfg.CacheTTL())))
	}
	members := oracle.New(tg, oracleOpts...)

	module, err := engine.LoadPolicyFile(cfg.UnlockPolicyFile)
	if err != nil {
		logger.Fatal("policy setup failed", zap.Error(err))
	}
	policy, err := engine.NewOPAEvaluator(ctx, module, logger)
	if err != nil {
		logger.Fatal("policy setup failed", zap.Error(err))
	}

	channels, err := channelSource(ctx, cfg, st.settings, logger)
	if err != nil {
		logger.Fatal("channels setup failed", zap.Error(err))
	}

	collector := metrics.NewCollector("")
	ledger := userservice.NewLedger(st.users, logger)
	accessGate := gate.New(gate.Options{
		AdminID:   cfg.AdminID,
		Threshold: cfg.UnlockThreshold,
		Debit:     cfg.UnlockPolicy == config.UnlockPolicyDebit,
	}, channels, members, ledger, policy, logger)
	catalog := contentservice.NewCatalog(st.content, logger)
	workflow := ingestion.NewWorkflow(cfg.AdminID, ingestion.NewSessionStore(0), catalog, logger)
	referrals := referralservice.NewEngine(ledger, handler.NewNotifier(tg), cfg.ReferralBonus, emitter, logger)
	dispatcher := broadcast.NewDispatcher(tg, broadcast.Options{
		Rate:        cfg.BroadcastRate,
		Concurrency: cfg.BroadcastConcurrency,
	}, emitter, logger)
	auditLogger := audit.NewLogger(st.audit, logger)

	router := handler.NewRouter(handler.Deps{
		Gateway:     tg,
		Gate:        accessGate,
		Referrals:   referrals,
		Ledger:      ledger,
		Catalog:     catalog,
		Ingestion:   workflow,
		Broadcaster: dispatcher,
		Channels:    channels,
		Metrics:     collector,
		Emitter:     emitter,
		BotUsername: tg.Username(),
	}, logger)

	chain := interceptors.Chain(router.Handle,
		interceptors.Recovery(logger),
		interceptors.Identity(cfg.AdminID),
		interceptors.Tracing(providers.Tracer()),
		interceptors.Metrics(collector),
		interceptors.Logging(logger),
		interceptors.AuditCommands(auditLogger, unauditedCommands),
	)

	checks := []healthhandler.Check{healthhandler.PolicyCheck("policy", policy)}
	if st.conn != nil {
		checks = append(checks, healthhandler.PingCheck("postgres", st.conn))
	}
	if redisClient != nil {
		checks = append(checks, healthhandler.Check{Name: "redis", Run: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           healthhandler.NewServer(collector.Handler(), checks...).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("health server listening", zap.String("addr", cfg.HTTPAddr()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("health server failed", zap.Error(err))
		}
	}()

	logStarting(logger, cfg, tg.Username())
	server.New(chain, cfg.UpdateWorkers, server.DefaultDrainTimeout, logger).Serve(ctx, tg.Updates(ctx))

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = httpSrv.Shutdown(shutdownCtx)
	cancel()

	// Let async event emits finish before the providers stop exporting.
	time.Sleep(telemetry.ShutdownDrainDuration)
	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := providers.Shutdown(otelCtx); err != nil {
		logger.Warn("otel shutdown failed", zap.Error(err))
	}
	otelCancel()
	logger.Info("bot stopped")
}

func logStarting(logger *zap.Logger, cfg *config.Config, bot string) {
	logger.Info("polling updates",
		zap.String("bot", bot),
		zap.Int64("admin_id", cfg.AdminID),
		zap.String("unlock_policy", cfg.UnlockPolicy),
		zap.String("channel_mode", cfg.ChannelMode),
	)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; using in-memory storage, data is lost on restart")
		return &stores{
			users:    userrepo.NewMemoryRepository(),
			content:  contentrepo.NewMemoryRepository(),
			settings: settingsrepo.NewMemoryRepository(),
			audit:    auditrepo.NewMemoryRepository(),
		}, nil
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    userrepo.NewPostgresRepository(conn),
		content:  contentrepo.NewPostgresRepository(conn),
		settings: settingsrepo.NewPostgresRepository(conn),
		audit:    auditrepo.NewPostgresRepository(conn),
		conn:     conn,
	}, nil
}

func channelSource(ctx context.Context, cfg *config.Config, settings settingsrepo.Repository, logger *zap.Logger) (channel.Admin, error) {
	if cfg.ChannelMode == config.ChannelModeStatic {
		return channel.NewStatic(cfg.RequiredChannelList()), nil
	}
	dyn := channel.NewDynamic(settings, logger)
	if err := dyn.Seed(ctx, cfg.RequiredChannelList()); err != nil {
		return nil, err
	}
	return dyn, nil
}
