package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/autopost/configs"
	"github.com/maheshrc27/autopost/internal/api/handlers"
	"github.com/maheshrc27/autopost/internal/api/middleware"
	"github.com/maheshrc27/autopost/internal/app"
	"github.com/maheshrc27/autopost/internal/logger"
	"github.com/maheshrc27/autopost/internal/queue"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := config.LoadConfig()
	logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	srv.Use(fiberlogger.New())
	srv.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, a.Auth)
	srv.Get("/login", auth.Login)
	srv.Get("/login/callback", auth.LoginCallbackHandler)
	srv.Post("/logout", auth.Logout)

	api := srv.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	account := handlers.NewAccountHandler(a.Accounts)
	api.Get("/account/info", account.GetAccountInfo)

	credit := handlers.NewCreditHandler(a.Credits, a.Scheduler)
	api.Get("/credits", credit.GetStatus)
	api.Get("/credits/history", credit.GetHistory)
	api.Post("/credits/grant", authMiddleware.AdminOnly(), credit.GrantCredit)

	keyword := handlers.NewKeywordHandler(a.Keywords)
	api.Get("/keywords", keyword.ListKeywords)
	api.Post("/keywords", keyword.RegisterKeywords)

	schedule := handlers.NewScheduleHandler(a.Schedules)
	api.Get("/schedule", schedule.GetSchedule)
	api.Post("/schedule/update", schedule.UpdateSchedule)

	channel := handlers.NewChannelHandler(a.Channels)
	api.Get("/channels", channel.ListChannels)
	api.Post("/channels", channel.AddChannel)
	api.Post("/channels/remove", channel.RemoveChannel)

	post := handlers.NewPostHandler(a.Posts, a.Assets, a.Credits, a.Scheduler, a.Tasks)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/generate", post.Generate)
	api.Get("/posts/assets", post.QueueStatus)
	api.Post("/posts/remove", post.RemovePost)

	// cron jobs
	c := cron.NewWithLocation(a.Location)
	c.AddFunc("0 * * * * *", func() {
		a.Scheduler.Tick(context.Background(), time.Now())
	})
	c.AddFunc("@every 1m", func() {
		report := a.Assets.ProcessPendingBatch(context.Background(), cfg.AssetBatchSize)
		if report.Picked > 0 {
			slog.Info("asset batch processed", "picked", report.Picked, "succeeded", report.Succeeded, "failed", report.Failed)
		}
	})
	c.AddFunc("@every 30m", func() {
		a.Tracking.RetryPending(context.Background())
	})
	c.AddFunc("@daily", func() {
		if _, err := a.Retention.Cleanup(context.Background(), time.Now()); err != nil {
			slog.Error("retention cleanup failed", "error", err)
		}
	})
	c.Start()

	worker := queue.NewWorker(a.Assets, a.Scheduler)
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisURI}, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue.QueueAssets:  6,
			queue.QueueContent: 2,
		},
	})

	go func() {
		mux := asynq.NewServeMux()
		worker.Register(mux)

		slog.Info("starting the asynq server")
		if err := server.Run(mux); err != nil {
			slog.Error("could not start asynq server", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		if err := srv.Listen(":" + cfg.Port); err != nil {
			slog.Error("failed to start http server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server is running", "port", cfg.Port, "timezone", a.Location.String())

	gracefulShutdown(srv, server, c, a)
}

func closeApp(a *app.App) {
	fmt.Fprint(os.Stdout, "Closing connections... ")
	a.Close()
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(srv *fiber.App, server *asynq.Server, c *cron.Cron, a *app.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	c.Stop()
	if err := srv.Shutdown(); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
	server.Shutdown()

	closeApp(a)
	slog.Info("server shutdown complete")
}
