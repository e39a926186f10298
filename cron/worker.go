package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"homely/config"
	"homely/models"
	"homely/services/settlement"
	"homely/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitSettlementWorker runs the async worker and the periodic settlement
// trigger in the background. The trigger fires daily; non-settlement days
// and concurrent instances are absorbed inside the settlement service.
func InitSettlementWorker(settlementSvc *settlement.SettlementService, logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSettlementRun, handleSettlementRun(settlementSvc, logger))
	mux.HandleFunc(tasks.TypeSettlementRecon, handleSettlementRecon(settlementSvc, logger))
	mux.HandleFunc(tasks.TypeSendNotification, handleNotificationTask(logger))

	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register(config.AppConfig.SettlementCron, tasks.NewSettlementRunTask()); err != nil {
		log.Fatalf("[SettlementWorker] failed to register settlement schedule: %v", err)
	}
	if _, err := scheduler.Register("30 * * * *", tasks.NewSettlementReconTask()); err != nil {
		log.Fatalf("[SettlementWorker] failed to register reconcile schedule: %v", err)
	}

	// Start Redis health monitor
	go monitorRedisConnection()

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[SettlementWorker] scheduler failed: %v", err)
		}
	}()

	// Start async worker with retry logic
	go func() {
		log.Println("[SettlementWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SettlementWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SettlementWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleSettlementRun(svc *settlement.SettlementService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		run, err := svc.Run(ctx, time.Now())
		if err != nil {
			logger.Error("Settlement run failed", zap.Error(err))
			return err
		}
		logger.Info("Settlement run triggered",
			zap.String("runId", run.ID),
			zap.String("state", run.State),
		)
		return nil
	}
}

func handleSettlementRecon(svc *settlement.SettlementService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := svc.ReconcilePayouts(ctx); err != nil {
			logger.Error("Payout reconciliation failed", zap.Error(err))
			return err
		}
		return nil
	}
}

// handleNotificationTask hands the payload to the delivery collaborator.
// Delivery transport (push/email) lives outside this core; here the attempt
// is logged so dropped deliveries are visible in operations.
func handleNotificationTask(logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.NotificationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid notification payload", zap.Error(err))
			return err
		}

		logger.Info("Dispatching notification",
			zap.String("target", p.Target),
			zap.String("targetId", p.TargetID),
			zap.String("kind", p.Kind),
			zap.String("title", p.Title),
		)
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SettlementWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
