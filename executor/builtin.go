package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/logging"
)

// SendMessage logs an outbound chat message and returns a delivery receipt.
type SendMessage struct {
	logger logging.Logger
}

// NewSendMessage creates the SEND_MESSAGE executor.
func NewSendMessage(logger logging.Logger) *SendMessage {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &SendMessage{logger: logger}
}

func (e *SendMessage) Name() string { return string(core.ActionSendMessage) }

func (e *SendMessage) Description() string {
	return "Delivers a message to the configured channel."
}

func (e *SendMessage) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	channel := configString(config, "channel", "default")
	message := configString(config, "message", "")

	e.logger.Info("message sent", "channel", channel, "length", len(message))

	return map[string]any{
		"delivered": true,
		"channel":   channel,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// SendEmail logs an outbound email and returns a delivery receipt.
type SendEmail struct {
	logger logging.Logger
}

// NewSendEmail creates the SEND_EMAIL executor.
func NewSendEmail(logger logging.Logger) *SendEmail {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &SendEmail{logger: logger}
}

func (e *SendEmail) Name() string { return string(core.ActionSendEmail) }

func (e *SendEmail) Description() string {
	return "Sends an email to the configured recipient."
}

func (e *SendEmail) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	to := configString(config, "to", "")
	if to == "" {
		return nil, fmt.Errorf("send email: missing recipient")
	}
	subject := configString(config, "subject", "(no subject)")

	e.logger.Info("email sent", "to", to, "subject", subject)

	return map[string]any{
		"delivered": true,
		"to":        to,
		"subject":   subject,
	}, nil
}

// CreateTask records a task creation and returns the new task identifier.
type CreateTask struct {
	logger logging.Logger
}

// NewCreateTask creates the CREATE_TASK executor.
func NewCreateTask(logger logging.Logger) *CreateTask {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &CreateTask{logger: logger}
}

func (e *CreateTask) Name() string { return string(core.ActionCreateTask) }

func (e *CreateTask) Description() string {
	return "Creates a task with the configured title and assignee."
}

func (e *CreateTask) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	title := configString(config, "title", "untitled task")
	taskID := core.NewID()

	e.logger.Info("task created", "task_id", taskID, "title", title)

	return map[string]any{
		"task_id":  taskID,
		"title":    title,
		"assignee": configString(config, "assignee", ""),
	}, nil
}

// CallWebhook POSTs a JSON payload to the configured URL. The payload is
// config["payload"] when present, otherwise the accumulated prior outputs.
type CallWebhook struct {
	client *http.Client
	logger logging.Logger
}

// WebhookOptions configures the CALL_WEBHOOK executor.
type WebhookOptions struct {
	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client
	Logger logging.Logger
}

// NewCallWebhook creates the CALL_WEBHOOK executor.
func NewCallWebhook(optFns ...func(o *WebhookOptions)) *CallWebhook {
	opts := WebhookOptions{
		Client: &http.Client{Timeout: 10 * time.Second},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &CallWebhook{client: opts.Client, logger: opts.Logger}
}

func (e *CallWebhook) Name() string { return string(core.ActionCallWebhook) }

func (e *CallWebhook) Description() string {
	return "POSTs a JSON payload to the configured webhook URL."
}

func (e *CallWebhook) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	url := configString(config, "url", "")
	if url == "" {
		return nil, fmt.Errorf("call webhook: missing url")
	}

	var payload any = prior
	if config != nil {
		if p, ok := config["payload"]; ok {
			payload = p
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("call webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("call webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("call webhook: status %d", resp.StatusCode)
	}

	e.logger.Info("webhook called", "url", url, "status", resp.StatusCode)

	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}, nil
}

// SendNotification logs an in-app notification.
type SendNotification struct {
	logger logging.Logger
}

// NewSendNotification creates the SEND_NOTIFICATION executor.
func NewSendNotification(logger logging.Logger) *SendNotification {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &SendNotification{logger: logger}
}

func (e *SendNotification) Name() string { return string(core.ActionSendNotification) }

func (e *SendNotification) Description() string {
	return "Delivers an in-app notification to the configured user."
}

func (e *SendNotification) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	userID := configString(config, "user_id", "")
	title := configString(config, "title", "")

	e.logger.Info("notification sent", "user_id", userID, "title", title)

	return map[string]any{
		"delivered": true,
		"user_id":   userID,
	}, nil
}

// ScheduleFollowup records a follow-up due at now + config["delay"], where
// delay is a Go duration string defaulting to 24h.
type ScheduleFollowup struct {
	logger logging.Logger
	clock  func() time.Time
}

// NewScheduleFollowup creates the SCHEDULE_FOLLOWUP executor.
func NewScheduleFollowup(logger logging.Logger) *ScheduleFollowup {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ScheduleFollowup{logger: logger, clock: time.Now}
}

func (e *ScheduleFollowup) Name() string { return string(core.ActionScheduleFollowup) }

func (e *ScheduleFollowup) Description() string {
	return "Schedules a follow-up task after the configured delay."
}

func (e *ScheduleFollowup) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	delay := 24 * time.Hour
	if raw := configString(config, "delay", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("schedule followup: invalid delay %q", raw)
		}
		delay = d
	}

	dueAt := e.clock().UTC().Add(delay)
	e.logger.Info("follow-up scheduled", "due_at", dueAt.Format(time.RFC3339))

	return map[string]any{
		"followup_id": core.NewID(),
		"due_at":      dueAt.Format(time.RFC3339),
	}, nil
}

var (
	_ core.Executor = (*SendMessage)(nil)
	_ core.Executor = (*SendEmail)(nil)
	_ core.Executor = (*CreateTask)(nil)
	_ core.Executor = (*CallWebhook)(nil)
	_ core.Executor = (*SendNotification)(nil)
	_ core.Executor = (*ScheduleFollowup)(nil)
)

// Builtins returns an instance of every built-in executor (RUN_AGENT
// excluded, which needs an agent registry).
func Builtins(logger logging.Logger) []core.Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return []core.Executor{
		NewSendMessage(logger),
		NewSendEmail(logger),
		NewCreateTask(logger),
		NewCallWebhook(func(o *WebhookOptions) { o.Logger = logger }),
		NewSendNotification(logger),
		NewScheduleFollowup(logger),
	}
}
