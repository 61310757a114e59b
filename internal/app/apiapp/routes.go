package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/config"
	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	bonussvc "github.com/FnipsDanil/crashTest-sub001/internal/services/bonus"
	giftsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/gifts"
	paymentsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/payments"
	playersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/players"
	promosvc "github.com/FnipsDanil/crashTest-sub001/internal/services/promo"
	ratesvc "github.com/FnipsDanil/crashTest-sub001/internal/services/rate"
	sendersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/senders"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	PlayerService  *playersvc.Service
	PromoService   *promosvc.Service
	BonusService   *bonussvc.Service
	PaymentService *paymentsvc.Service
	GiftService    *giftsvc.Service
	SenderService  *sendersvc.Service
	RateLimiter    *ratesvc.Limiter
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	verifyHandler := handlers.NewVerifyHandler(deps.AuthService)
	playersHandler := handlers.NewPlayersHandler(deps.PlayerService)
	promoHandler := handlers.NewPromoHandler(deps.PromoService)
	bonusHandler := handlers.NewBonusHandler(deps.BonusService)
	paymentsHandler := handlers.NewPaymentsHandler(deps.PaymentService)
	giftsHandler := handlers.NewGiftsHandler(deps.GiftService)
	sendersHandler := handlers.NewSendersHandler(deps.SenderService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	rateMW := RateLimitMiddleware(deps.RateLimiter, deps.Logger)
	adminMW := AdminAuthMiddleware(deps.Config.Admin.Token, deps.Logger)

	r.Get("/health", healthHandler.Get)
	r.Post("/verify-user", verifyHandler.Handle)

	r.Get("/gifts", giftsHandler.List)
	r.Get("/recent-crashes", playersHandler.RecentCrashes)
	r.Get("/leaderboard", playersHandler.Leaderboard)

	r.With(authMW, rateMW).Get("/balance/{user_id}", playersHandler.Balance)
	r.With(authMW, rateMW).Get("/user-stats/{user_id}", playersHandler.Stats)
	r.With(authMW, rateMW).Get("/player-rank/{user_id}", playersHandler.Rank)
	r.With(authMW, rateMW).Get("/transactions/{user_id}", playersHandler.Transactions)

	r.With(authMW, rateMW).Post("/create-invoice", paymentsHandler.CreateInvoice)
	r.With(authMW, rateMW).Get("/payment-status/{payload}", paymentsHandler.Status)

	r.Route("/api/player", func(r chi.Router) {
		r.Use(authMW, rateMW)
		r.Post("/use-promo-code", promoHandler.Use)
		r.Get("/promo-code-history", promoHandler.History)
		r.Post("/check-channel-subscription", bonusHandler.CheckSubscription)
		r.Get("/channel-bonuses", bonusHandler.List)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminMW)
		r.Get("/verified-senders", sendersHandler.List)
		r.Post("/verified-senders/{chat_id}/block", sendersHandler.SetBlocked)
		r.Post("/gifts/{gift_id}/image", giftsHandler.UploadImage)
	})
}
