package main

import (
	"log"
	"os"
	"time"

	"wardrobeapi/controllers"
	"wardrobeapi/dbhelper"
	"wardrobeapi/regulator"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	env := services.GetEnv("ENV", "local")
	err := sentry.Init(sentry.ClientOptions{
		// SENTRY_DSN is read from the environment when Dsn is empty
		Environment:      env,
		Release:          "wardrobeapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	logger, err := services.NewLogger(env)
	if err != nil {
		log.Fatalf("logger: %s", err)
	}
	defer logger.Sync()

	db := dbhelper.SetupDB()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")})
	defer asynqClient.Close()

	reg, err := services.NewRegulator(logger,
		regulator.SentryNotifier{},
		tasks.QueueNotifier{Client: asynqClient},
	)
	if err != nil {
		logger.Fatalw("failed to load regulations", "error", err)
	}
	defer reg.Flush(5 * time.Second)

	outfitService, err := services.NewGenerationStack(db, reg, logger)
	if err != nil {
		logger.Fatalw("failed to set up outfit generation", "error", err)
	}

	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, bucketName, logger)
	if err != nil {
		logger.Fatalw("failed to initialize URL cache service", "error", err)
	}

	e := controllers.SetupServer(db, awsService, urlCache, asynqClient, outfitService)
	e.Debug = env != "prod"
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(10)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":" + services.GetEnv("PORT", "8083")))
}
