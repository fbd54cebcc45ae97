package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fairmeet/core/constants"
	"fairmeet/core/logger"

	"github.com/hibiken/asynq"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) opt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// Enqueuer schedules background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) (string, error)
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg RedisConfig) *Client {
	return &Client{client: asynq.NewClient(cfg.opt())}
}

// Enqueue JSON-encodes payload and enqueues it on the default queue. It returns the task ID.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", taskType, err)
	}

	defaults := []asynq.Option{
		asynq.Queue(constants.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(2 * time.Minute),
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, raw), append(defaults, opts...)...)
	if err != nil {
		logger.Error("Queue:Enqueue", "type", taskType, "error", err)
		return "", err
	}
	logger.Info("Queue:Enqueue", "type", taskType, "task_id", info.ID, "queue", info.Queue)
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// DecodePayload unmarshals a task payload; malformed payloads are not retried.
func DecodePayload(t *asynq.Task, dest any) error {
	if err := json.Unmarshal(t.Payload(), dest); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// Worker runs registered task handlers until the process is signalled.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(cfg RedisConfig, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.opt(), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{constants.QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Queue:Worker:TaskFailed", "type", task.Type(), "error", err)
		}),
	})
	return &Worker{server: srv, mux: asynq.NewServeMux()}
}

func (w *Worker) Handle(taskType string, handler func(ctx context.Context, t *asynq.Task) error) {
	w.mux.HandleFunc(taskType, handler)
}

// Run blocks until SIGTERM or SIGINT.
func (w *Worker) Run() error {
	logger.Info("Queue:Worker:Start")
	return w.server.Run(w.mux)
}
