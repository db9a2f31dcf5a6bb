package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/pkg/jobs"
)

// NotificationEvent names something worth telling the office about.
type NotificationEvent string

const (
	EventStudentRegistered NotificationEvent = "student.registered"
	EventRegistryUpdated   NotificationEvent = "registry.updated"
	EventSessionAdded      NotificationEvent = "session.added"
	EventStudentDeleted    NotificationEvent = "student.deleted"
)

// Notification is the payload carried by a notification job.
type Notification struct {
	Event      NotificationEvent
	UserID     string
	Fields     map[string]string
	OccurredAt time.Time
}

// Mailer delivers a rendered notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes notifications to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a mailer backed by logger.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("notification", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// NotificationConfig tunes dispatch.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	AdminEmail string
}

// NotificationService dispatches fire-and-forget notifications through a worker queue.
// Notify never blocks and never fails the caller.
type NotificationService struct {
	queue   *jobs.Queue
	mailer  Mailer
	cfg     NotificationConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the mailer behind a jobs queue.
func NewNotificationService(mailer Mailer, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	s := &NotificationService{mailer: mailer, cfg: cfg, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		Observe: func(_ jobs.Job, outcome jobs.Outcome) {
			metrics.RecordNotification(string(outcome))
		},
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop(ctx context.Context) error {
	if s == nil || !s.cfg.Enabled {
		return nil
	}
	return s.queue.Stop(ctx)
}

// Notify enqueues an event. Failures are logged only.
func (s *NotificationService) Notify(_ context.Context, event NotificationEvent, userID string, fields map[string]string) {
	if s == nil || !s.cfg.Enabled {
		return
	}
	note := Notification{Event: event, UserID: userID, Fields: fields, OccurredAt: time.Now().UTC()}
	if err := s.queue.TryEnqueue(jobs.Job{Type: string(event), Payload: note}); err != nil {
		outcome := "rejected"
		if errors.Is(err, jobs.ErrQueueFull) {
			outcome = string(jobs.OutcomeDropped)
		}
		s.metrics.RecordNotification(outcome)
		s.logger.Warn("notification not enqueued", zap.String("event", string(event)), zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	note, ok := job.Payload.(Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	if s.cfg.AdminEmail == "" {
		s.logger.Debug("notification skipped, no recipient", zap.String("event", string(note.Event)))
		return nil
	}
	subject, body := renderNotification(note)
	return s.mailer.Send(ctx, s.cfg.AdminEmail, subject, body)
}

func renderNotification(note Notification) (string, string) {
	subject := fmt.Sprintf("[drive-admin] %s", note.Event)
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\nuser: %s\nat: %s\n", note.Event, note.UserID, note.OccurredAt.Format(time.RFC3339))
	keys := make([]string, 0, len(note.Fields))
	for key := range note.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, note.Fields[key])
	}
	return subject, b.String()
}
