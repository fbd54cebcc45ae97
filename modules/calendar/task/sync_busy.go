package task

import (
	"context"
	"fmt"

	"fairmeet/core/constants"
	"fairmeet/core/logger"
	"fairmeet/core/queue"
	"fairmeet/modules/calendar/dto"
	"fairmeet/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SyncBusyHandler processes calendar:sync_busy tasks.
type SyncBusyHandler struct {
	CalendarService service.CalendarService
}

func NewSyncBusyHandler(svc service.CalendarService) *SyncBusyHandler {
	return &SyncBusyHandler{CalendarService: svc}
}

// Register binds the handler to the worker's mux.
func (h *SyncBusyHandler) Register(w *queue.Worker) {
	w.Handle(constants.TaskCalendarSyncBusy, h.ProcessTask)
}

func (h *SyncBusyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload dto.SyncBusyPayload
	if err := queue.DecodePayload(t, &payload); err != nil {
		return err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user_id %q: %v: %w", payload.UserID, err, asynq.SkipRetry)
	}
	days := payload.Days
	if days < 1 || days > constants.MaxSyncDays {
		days = constants.DefaultSyncDays
	}

	n, err := h.CalendarService.SyncGoogleBusy(ctx, userID, days)
	if err != nil {
		logger.Error("SyncBusyHandler:ProcessTask", "user_id", userID, "error", err)
		return err
	}
	logger.Info("SyncBusyHandler:ProcessTask:Done", "user_id", userID, "blocks", n)
	return nil
}
