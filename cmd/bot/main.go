package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"channelpass/internal/config"
	memberrepository "channelpass/internal/membership/repository"
	memberservice "channelpass/internal/membership/service"
	memberhttp "channelpass/internal/membership/transport/http"
	membertg "channelpass/internal/membership/transport/telegram"
	"channelpass/internal/metrics"
	promorepository "channelpass/internal/promocode/repository"
	promoservice "channelpass/internal/promocode/service"
	"channelpass/internal/telegram"
	"channelpass/pkg/db"
	"channelpass/pkg/logger"
	"channelpass/pkg/middleware"
)

var server *http.Server

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	logg.Info("channelpass starting")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logg.Fatalf("Database connection failed: %v", err)
	}
	logg.Info("Database connected")

	metrics.InitMetrics()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logg.Fatalf("Telegram auth failed: %v", err)
	}
	logg.WithField("bot", bot.Self.UserName).Info("Telegram authorized")

	// --- СХЕМА ---
	ctx := context.Background()
	memberRepo := memberrepository.NewMembershipRepository(database)
	if err := memberRepo.EnsureSchema(ctx); err != nil {
		logg.Fatalf("Schema init failed: %v", err)
	}
	promoRepo := promorepository.NewPostgresPromoCodeRepository(database)
	if err := promoRepo.EnsureSchema(ctx); err != nil {
		logg.Fatalf("Schema init failed: %v", err)
	}

	// --- ИНИЦИАЛИЗАЦИЯ СЛОЁВ ---
	gate := telegram.NewClient(bot, cfg.ChannelID, logg)
	memberService := memberservice.NewService(memberRepo, gate, cfg.SubDays, logg)
	promoService := promoservice.NewService(promoRepo, database, logg)

	tgHandler := membertg.NewHandler(bot, memberService, promoService, cfg.AdminID, logg)
	opsHandler := memberhttp.NewHandler(memberService, promoService,
		cfg.OpsUser, cfg.OpsPasswordHash, cfg.JWTSecret, logg)

	// --- СВИПЕР ---
	sweeper := cron.New()
	_, err = sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		revoked, err := memberService.SweepExpired(sweepCtx, time.Now().UTC())
		if err != nil {
			logg.WithError(err).Error("sweep failed")
			return
		}
		if revoked > 0 {
			logg.WithField("revoked", revoked).Info("sweep finished")
		}
	})
	if err != nil {
		logg.Fatalf("Sweeper init failed: %v", err)
	}
	sweeper.Start()

	// --- OPS API ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.ValidateRequest)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.NewRateLimiter(60, time.Minute).Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if cfg.MetricsPassword != "" {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).
			Handle("/metrics", promhttp.Handler())
	}

	if cfg.OpsEnabled() {
		r.Post("/auth/login", opsHandler.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.JWTAuth(cfg.JWTSecret))
			pr.Get("/api/members", opsHandler.ListMembers)
			pr.Get("/api/members/{id}", opsHandler.GetMember)
			pr.Delete("/api/members/{id}", opsHandler.KickMember)
			pr.Post("/api/promocodes", opsHandler.CreatePromoCode)
			pr.Get("/api/promocodes", opsHandler.ListPromoCodes)
		})
	} else {
		logg.Warn("ops API disabled: JWT_SECRET/OPS_USER/OPS_PASSWORD_HASH not set")
	}

	server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logg.WithField("addr", cfg.HTTPAddr).Info("ops API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// --- ПОЛЛИНГ ---
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}
	updates := bot.GetUpdatesChan(u)

	// Graceful shutdown на сигналы ОС
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logg.Info("Shutdown signal received")
		sweeper.Stop()
		bot.StopReceivingUpdates()
		shutdownServer(logg)
	}()

	logg.Info("Bot polling started")
	for update := range updates {
		tgHandler.HandleUpdate(context.Background(), update)
	}

	logg.Info("Bot stopped")
}

func shutdownServer(logg *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.WithError(err).Error("Server shutdown failed")
	}
}
