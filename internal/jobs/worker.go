package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/services"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

const (
	// TypeDialogueProcess is one inbound message to run through the state
	// machine. The webhook handler enqueues it with the Twilio MessageSid as
	// the task id, so redelivered webhooks collapse into one task.
	TypeDialogueProcess = "dialogue:process"

	// TypeSessionSweep deletes terminal sessions past the retention window.
	TypeSessionSweep = "sessions:sweep"
)

// DialoguePayload carries one inbound message.
type DialoguePayload struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// NewDialogueTask builds the task for one inbound message.
func NewDialogueTask(from, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(DialoguePayload{From: from, Body: body})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDialogueProcess, payload), nil
}

// Worker runs the dialogue steps and scheduled maintenance off the webhook
// acknowledgment path.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler

	engine    *services.DialogueEngine
	sessions  *services.SessionService
	messenger services.Messenger

	retentionDays int
	log           *zap.Logger
}

// NewWorker creates the asynq server and scheduler. messenger may be nil for
// local runs; replies are then logged instead of sent.
func NewWorker(
	redisOpt asynq.RedisClientOpt,
	engine *services.DialogueEngine,
	sessions *services.SessionService,
	messenger services.Messenger,
	concurrency int,
	retentionDays int,
) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})
	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Worker{
		srv:           srv,
		scheduler:     scheduler,
		engine:        engine,
		sessions:      sessions,
		messenger:     messenger,
		retentionDays: retentionDays,
		log:           utils.GetLogger(),
	}
}

// Start registers handlers and the nightly sweep, then runs the server in the
// background.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDialogueProcess, w.handleDialogue)
	mux.HandleFunc(TypeSessionSweep, w.handleSweep)

	if _, err := w.scheduler.Register("0 3 * * *", asynq.NewTask(TypeSessionSweep, nil)); err != nil {
		return fmt.Errorf("registering session sweep: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	go func() {
		if err := w.srv.Run(mux); err != nil {
			w.log.Fatal("dialogue worker stopped", zap.Error(err))
		}
	}()

	w.log.Info("dialogue worker started")
	return nil
}

// Stop shuts the scheduler and server down, letting in-flight steps finish.
func (w *Worker) Stop() {
	w.scheduler.Shutdown()
	w.srv.Shutdown()
}

func (w *Worker) handleDialogue(ctx context.Context, t *asynq.Task) error {
	var p DialoguePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad dialogue payload: %v: %w", err, asynq.SkipRetry)
	}

	reply, err := w.engine.HandleMessage(ctx, p.From, p.Body)
	if err != nil {
		// Collaborator failure: let asynq redeliver. The per-session lock
		// and the idempotency key make the retry safe.
		return err
	}
	if reply == "" {
		return nil
	}

	if w.messenger == nil {
		w.log.Info("reply not sent, messenger not configured",
			zap.String("to", utils.NormalizePhone(p.From)), zap.String("reply", reply))
		return nil
	}
	if err := w.messenger.Send(utils.NormalizePhone(p.From), reply); err != nil {
		// The transition is already persisted; re-running the dialogue to
		// resend would double-consume the user's input.
		w.log.Error("reply delivery failed", zap.String("to", p.From), zap.Error(err))
	}
	return nil
}

func (w *Worker) handleSweep(ctx context.Context, t *asynq.Task) error {
	removed, err := w.sessions.SweepExpired(w.retentionDays)
	if err != nil {
		return err
	}
	w.log.Info("session retention sweep finished", zap.Int64("removed", removed))
	return nil
}
