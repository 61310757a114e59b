package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/config"
	tginfra "github.com/FnipsDanil/crashTest-sub001/internal/infra/telegram"
	"github.com/FnipsDanil/crashTest-sub001/internal/jobs/partitions"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
	paymentsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/payments"
	playersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/players"
	sendersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/senders"
)

const (
	welcomeText = "Welcome to Crash Stars! Open the mini app to play."
	helpText    = "Commands:\n/start - open the game\n/balance - show your balance\n/support - contact support"
)

type App struct {
	cfg            config.Config
	logger         *zap.Logger
	postgres       *pgxpool.Pool
	redis          *goredis.Client
	bot            *tginfra.Bot
	paymentService *paymentsvc.Service
	playerService  *playersvc.Service
	senderService  *sendersvc.Service
	partitionJob   *partitions.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}
	if err := pgrepo.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	bot, err := tginfra.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	statsRepo := pgrepo.NewStatsRepo(pool)
	historyRepo := pgrepo.NewGameHistoryRepo(pool)
	txnRepo := pgrepo.NewTransactionRepo(pool)
	senderRepo := pgrepo.NewSenderRepo(pool)
	balanceRepo := redrepo.NewBalanceRepo(redisClient)
	invoiceRepo := redrepo.NewInvoiceRepo(redisClient)

	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Pool:         pool,
		Invoices:     invoiceRepo,
		Users:        userRepo,
		Transactions: txnRepo,
		Linker:       bot,
		BalanceCache: balanceRepo,
		Logger:       logger,
	})
	playerService := playersvc.NewService(playersvc.Dependencies{
		Users:        userRepo,
		Stats:        statsRepo,
		History:      historyRepo,
		Transactions: txnRepo,
		BalanceCache: balanceRepo,
		Logger:       logger,
	})
	senderService := sendersvc.NewService(senderRepo, logger)
	partitionJob := partitions.New(pgrepo.NewPartitionRepo(pool), cfg.Jobs.PartitionMonths, logger)

	return &App{
		cfg:            cfg,
		logger:         logger,
		postgres:       pool,
		redis:          redisClient,
		bot:            bot,
		paymentService: paymentService,
		playerService:  playerService,
		senderService:  senderService,
		partitionJob:   partitionJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.partitionJob.RunLoop(ctx, a.cfg.Jobs.PartitionInterval)
	}()
	go func() {
		errCh <- a.bot.Listen(ctx, tginfra.Handlers{
			OnCommand:     a.handleCommand,
			OnText:        a.handleText,
			OnCallback:    a.handleCallback,
			OnPreCheckout: a.handlePreCheckout,
			OnPayment:     a.handlePayment,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if _, err := a.senderService.RecordContact(ctx, update.ChatID, update.Username, update.FirstName, update.LastName); err != nil {
		a.logger.Warn("failed to record sender contact", zap.Error(err), zap.Int64("chat_id", update.ChatID))
	}

	allowed, err := a.senderService.CanMessage(ctx, update.ChatID)
	if err != nil {
		a.logger.Warn("sender block lookup failed", zap.Error(err), zap.Int64("chat_id", update.ChatID))
	} else if !allowed {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.bot.SendText(ctx, update.ChatID, welcomeText)
	case "help":
		return a.bot.SendText(ctx, update.ChatID, helpText)
	case "balance":
		return a.sendBalance(ctx, update.ChatID, update.UserID)
	case "support":
		return a.bot.SendText(ctx, update.ChatID, "Support: "+a.cfg.Telegram.SupportContact)
	default:
		return nil
	}
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if _, err := a.senderService.RecordContact(ctx, update.ChatID, update.Username, update.FirstName, update.LastName); err != nil {
		a.logger.Warn("failed to record sender contact", zap.Error(err), zap.Int64("chat_id", update.ChatID))
	}
	return nil
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	switch strings.TrimSpace(update.Data) {
	case "support":
		if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
			return err
		}
		if update.ChatID == 0 {
			return nil
		}
		return a.bot.SendText(ctx, update.ChatID, "Support: "+a.cfg.Telegram.SupportContact)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}
}

func (a *App) sendBalance(ctx context.Context, chatID, telegramID int64) error {
	balance, err := a.playerService.Balance(ctx, telegramID)
	if err != nil {
		if errors.Is(err, playersvc.ErrPlayerNotFound) {
			return a.bot.SendText(ctx, chatID, "Open the mini app first to create your account.")
		}
		a.logger.Warn("balance lookup failed", zap.Error(err), zap.Int64("telegram_id", telegramID))
		return a.bot.SendText(ctx, chatID, "Balance is temporarily unavailable, try again later.")
	}

	return a.bot.SendText(ctx, chatID, fmt.Sprintf("Your balance: %.2f stars", balance.Balance))
}

// handlePreCheckout must answer within Telegram's ten second window, so
// validation failures answer ok=false instead of returning an error and
// tearing the listener down.
func (a *App) handlePreCheckout(ctx context.Context, update tginfra.PreCheckoutUpdate) error {
	ok, message := a.paymentService.Approve(ctx, update.UserID, update.Payload)

	errorMessage := ""
	if !ok {
		errorMessage = message
		a.logger.Warn("rejected pre-checkout query",
			zap.Int64("telegram_id", update.UserID),
			zap.String("payload", update.Payload),
			zap.String("reason", message))
	}

	if err := a.bot.AnswerPreCheckout(ctx, update.QueryID, ok, errorMessage); err != nil {
		a.logger.Error("failed to answer pre-checkout query", zap.Error(err), zap.String("query_id", update.QueryID))
	}
	return nil
}

func (a *App) handlePayment(ctx context.Context, update tginfra.PaymentUpdate) error {
	confirmation, err := a.paymentService.Confirm(ctx, update.UserID, update.Payload, update.Total)
	if err != nil {
		a.logger.Error("failed to confirm successful payment",
			zap.Error(err),
			zap.Int64("telegram_id", update.UserID),
			zap.String("payload", update.Payload),
			zap.String("charge_id", update.ChargeID))
		_ = a.bot.SendText(ctx, update.ChatID, "Payment received, crediting is delayed. Contact support if the balance does not update.")
		return nil
	}

	if confirmation.AlreadyProcessed {
		return nil
	}

	a.logger.Info("deposit credited",
		zap.Int64("telegram_id", update.UserID),
		zap.Float64("amount", confirmation.Amount),
		zap.String("charge_id", update.ChargeID))

	text := fmt.Sprintf("Payment received! %.0f stars were added to your balance. New balance: %.2f", confirmation.Amount, confirmation.NewBalance)
	return a.bot.SendText(ctx, update.ChatID, text)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
