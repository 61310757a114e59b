package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/config"
	s3infra "github.com/FnipsDanil/crashTest-sub001/internal/infra/s3"
	tginfra "github.com/FnipsDanil/crashTest-sub001/internal/infra/telegram"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
	assetsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/assets"
	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	bonussvc "github.com/FnipsDanil/crashTest-sub001/internal/services/bonus"
	giftsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/gifts"
	paymentsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/payments"
	playersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/players"
	promosvc "github.com/FnipsDanil/crashTest-sub001/internal/services/promo"
	ratesvc "github.com/FnipsDanil/crashTest-sub001/internal/services/rate"
	sendersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/senders"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := pgrepo.NewUserRepo(pool)
	statsRepo := pgrepo.NewStatsRepo(pool)
	historyRepo := pgrepo.NewGameHistoryRepo(pool)
	txnRepo := pgrepo.NewTransactionRepo(pool)
	promoRepo := pgrepo.NewPromoRepo(pool)
	bonusRepo := pgrepo.NewBonusRepo(pool)
	giftRepo := pgrepo.NewGiftRepo(pool)
	senderRepo := pgrepo.NewSenderRepo(pool)
	settingsRepo := pgrepo.NewSettingsRepo(pool)
	partitionRepo := pgrepo.NewPartitionRepo(pool)

	balanceRepo := redrepo.NewBalanceRepo(redisClient)
	lockRepo := redrepo.NewLockRepo(redisClient)
	invoiceRepo := redrepo.NewInvoiceRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	if pool != nil {
		// Schema and partition setup waits out a database that is still
		// starting up, so it runs off the request path.
		go func() {
			if err := pgrepo.Migrate(ctx, pool, log); err != nil {
				log.Warn("schema migration failed, continuing in degraded mode", zap.Error(err))
				return
			}
			if _, err := partitionRepo.EnsureUpcomingPartitions(ctx, 1); err != nil {
				log.Warn("initial partition creation failed", zap.Error(err))
			}
		}()
	}

	verifier, err := authsvc.NewVerifier(cfg.Telegram.BotToken, cfg.Telegram.DevelopmentMode, cfg.Telegram.MaxAuthAge)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		_ = redisClient.Close()
		return nil, fmt.Errorf("init telegram verifier: %w", err)
	}
	sessions := authsvc.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	authService := authsvc.NewService(verifier, sessions, log)

	var bot *tginfra.Bot
	if cfg.Telegram.BotToken != "" {
		if b, err := tginfra.NewBot(cfg.Telegram.BotToken); err != nil {
			log.Warn("telegram bot init failed, membership checks and invoices degraded", zap.Error(err))
		} else {
			bot = b
		}
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, gift image uploads degraded", zap.Error(err))
	} else {
		s3Client = c
	}

	assetResolver := assetsvc.NewResolver(cfg.Assets.CDNBaseURL)

	playerService := playersvc.NewService(playersvc.Dependencies{
		Users:        userRepo,
		Stats:        statsRepo,
		History:      historyRepo,
		Transactions: txnRepo,
		BalanceCache: balanceRepo,
		Logger:       log,
	})
	promoService := promosvc.NewService(promosvc.Dependencies{
		Pool:         pool,
		Promos:       promoRepo,
		Users:        userRepo,
		Transactions: txnRepo,
		Locks:        lockRepo,
		BalanceCache: balanceRepo,
		Logger:       log,
	})

	var membership bonussvc.MembershipChecker
	if bot != nil {
		membership = bot
	}
	bonusService := bonussvc.NewService(bonussvc.Dependencies{
		Pool:          pool,
		Bonuses:       bonusRepo,
		Users:         userRepo,
		Transactions:  txnRepo,
		Settings:      settingsRepo,
		Membership:    membership,
		Locks:         lockRepo,
		BalanceCache:  balanceRepo,
		Logger:        log,
		Enabled:       cfg.Bonus.ChannelBonusEnabled,
		DefaultAmount: cfg.Bonus.DefaultChannelBonus,
	})

	var linker paymentsvc.InvoiceLinker
	if bot != nil {
		linker = bot
	}
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Pool:         pool,
		Invoices:     invoiceRepo,
		Users:        userRepo,
		Transactions: txnRepo,
		Linker:       linker,
		BalanceCache: balanceRepo,
		Logger:       log,
	})

	giftStorage := giftsvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	giftService := giftsvc.NewService(giftRepo, giftStorage, assetResolver, log)
	senderService := sendersvc.NewService(senderRepo, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Rate.RequestsPerMinute, cfg.Rate.RequestsPer10Sec)

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		PlayerService:  playerService,
		PromoService:   promoService,
		BonusService:   bonusService,
		PaymentService: paymentService,
		GiftService:    giftService,
		SenderService:  senderService,
		RateLimiter:    rateLimiter,
		Logger:         log,
		Config:         cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
