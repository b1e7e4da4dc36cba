package main

import (
	"context"
	"log"
	"os"
	"time"

	"wardrobeapi/dbhelper"
	"wardrobeapi/regulator"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
	"wardrobeapi/telegram"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func runScheduler(redis asynq.RedisClientOpt, logger *zap.SugaredLogger) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: services.GetEnv("DIGEST_CRON", "0 9 * * *"),
			task: tasks.NewRegulatorDigestTask(),
			desc: "Regulator digest",
		},
	}

	for _, t := range entries {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			logger.Fatalw("failed to register task", "task", t.desc, "error", err)
		}
		logger.Infow("registered task", "task", t.desc, "entry_id", entryID, "cron", t.cron)
	}

	if err := scheduler.Run(); err != nil {
		logger.Fatalw("scheduler failed", "error", err)
	}
}

func main() {
	env := services.GetEnv("ENV", "local")
	if err := sentry.Init(sentry.ClientOptions{Environment: env, Release: "wardrobeapi@1.0.0"}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	logger, err := services.NewLogger(env)
	if err != nil {
		log.Fatalf("logger: %s", err)
	}
	defer logger.Sync()

	redis := asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: services.GetEnvInt("WORKER_CONCURRENCY", 10),
		Queues: map[string]int{
			tasks.QueueGenerate: 7,
			tasks.QueueNotify:   3,
		},
	})
	asynqClient := asynq.NewClient(redis)
	defer asynqClient.Close()

	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		logger.Fatalw("error initializing firebase app", "error", err)
	}
	push := services.FirebasePushSender{App: app}

	// delivery targets for regulator:notify jobs
	var delivery regulator.Notifiers
	if url := services.GetEnv("REGULATOR_WEBHOOK_URL", ""); url != "" {
		delivery = append(delivery, regulator.NewWebhookNotifier(url))
	}
	tg, err := telegram.NewNotifierFromEnv()
	if err != nil {
		logger.Fatalw("telegram notifier", "error", err)
	}
	if tg != nil {
		delivery = append(delivery, tg)
	}

	reg, err := services.NewRegulator(logger,
		regulator.SentryNotifier{},
		tasks.QueueNotifier{Client: asynqClient},
	)
	if err != nil {
		logger.Fatalw("failed to load regulations", "error", err)
	}
	db := dbhelper.SetupDB()
	outfitService, err := services.NewGenerationStack(db, reg, logger)
	if err != nil {
		logger.Fatalw("failed to set up outfit generation", "error", err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeGenerateOutfit, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleOutfitGenerationTask(ctx, t, outfitService, push)
	})
	mux.HandleFunc(tasks.TypeRegulatorNotify, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleRegulatorNotifyTask(ctx, t, delivery)
	})
	if tg != nil {
		mux.HandleFunc(tasks.TypeRegulatorDigest, func(ctx context.Context, t *asynq.Task) error {
			return tasks.HandleRegulatorDigestTask(ctx, t, db, reg, tg)
		})
		go runScheduler(redis, logger)
	}

	if err := srv.Run(mux); err != nil {
		reg.Flush(5 * time.Second)
		log.Fatal(err)
	}
}
