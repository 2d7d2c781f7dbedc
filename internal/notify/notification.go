package notify

import (
	"time"

	"github.com/google/uuid"
)

// Level is the severity shown to dashboard users.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	NotificationType Level          `json:"notification_type"`
	Timestamp        time.Time      `json:"timestamp"`
	Data             map[string]any `json:"data,omitempty"`
}

func NewSystem(title, message string, level Level, data map[string]any) Notification {
	return Notification{
		ID:               uuid.NewString(),
		Type:             "system_notification",
		Title:            title,
		Message:          message,
		NotificationType: level,
		Timestamp:        time.Now().UTC(),
		Data:             data,
	}
}

// Notifier delivers notifications to whoever is listening. Delivery is best-effort.
type Notifier interface {
	Notify(n Notification)
}

type nop struct{}

func (nop) Notify(Notification) {}

// Nop discards every notification.
func Nop() Notifier { return nop{} }

// Recorder keeps notifications in memory. Tests use it to assert on what was sent.
type Recorder struct {
	ch chan Notification
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Notification, size)}
}

func (r *Recorder) Notify(n Notification) {
	select {
	case r.ch <- n:
	default:
	}
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-r.ch:
			out = append(out, n)
		default:
			return out
		}
	}
}
