package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/queue"
)

// JobQueue is the part of queue.Queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// DeliveryLog records the outcome of each delivery attempt.
type DeliveryLog interface {
	RecordEmail(ctx context.Context, entry *model.EmailLog) error
}

// Worker drains the ticket queue and sends confirmation emails.
type Worker struct {
	queue    JobQueue
	sender   Sender
	renderer *Renderer
	delivery DeliveryLog
	logger   *zap.Logger

	PollTimeout  time.Duration
	RetryBackoff time.Duration
}

// NewWorker creates a ticket email worker.
func NewWorker(q JobQueue, sender Sender, renderer *Renderer, delivery DeliveryLog, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:        q,
		sender:       sender,
		renderer:     renderer,
		delivery:     delivery,
		logger:       logger,
		PollTimeout:  5 * time.Second,
		RetryBackoff: 10 * time.Second,
	}
}

// Process renders and sends one job and records the attempt.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	email, err := w.renderer.Render(job.Ticket)
	if err != nil {
		return err
	}

	sendErr := w.sender.Send(ctx, email)
	entry := &model.EmailLog{
		ID:             uuid.New().String(),
		EventID:        job.Ticket.EventID,
		UserID:         job.Ticket.UserID,
		RecipientEmail: email.To,
		Subject:        email.Subject,
		Status:         model.EmailStatusSent,
		Attempt:        job.Attempt + 1,
		CreatedAt:      time.Now().UTC(),
	}
	if sendErr != nil {
		entry.Status = model.EmailStatusFailed
		entry.ErrorMessage = sendErr.Error()
	}
	metrics.TrackNotification(string(entry.Status))

	if err := w.delivery.RecordEmail(ctx, entry); err != nil {
		w.logger.Warn("record email delivery failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if sendErr != nil {
		return sendErr
	}

	w.logger.Info("ticket email sent",
		zap.String("job_id", job.ID),
		zap.String("ticket_id", job.Ticket.TicketID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			w.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			w.sleep(ctx)
		}
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.RetryBackoff):
	}
}
