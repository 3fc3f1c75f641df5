// Package notify shows one transient user-facing message at a time.
//
// A new notification always replaces the visible one; it is removed again
// after a fixed timeout or when dismissed.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio/logging"
	"portfolio/model"
	"portfolio/scheduler"
)

const (
	StandardTimeout  = 5 * time.Second
	TransientTimeout = 2 * time.Second
)

// Display renders notifications. Calls are serialized by the Queue and a
// Hide for the previous notification always precedes the next Show.
type Display interface {
	Show(n model.Notification)
	Hide(n model.Notification)
}

type Queue struct {
	display Display
	clock   scheduler.Clock
	expiry  *scheduler.Slot
	logger  *zap.Logger

	mu      sync.Mutex
	visible *model.Notification
	seq     uint64
}

// NewQueue creates a queue rendering on display. A nil clock uses the real one.
func NewQueue(display Display, clock scheduler.Clock, logger *zap.Logger) *Queue {
	if clock == nil {
		clock = scheduler.RealClock{}
	}
	return &Queue{
		display: display,
		clock:   clock,
		expiry:  scheduler.NewSlot(clock),
		logger:  logging.OrNop(logger).Named("notify"),
	}
}

// Notify shows message for StandardTimeout.
func (q *Queue) Notify(message string, severity model.Severity) model.Notification {
	return q.show(message, severity, StandardTimeout)
}

// NotifyTransient shows a short-lived contextual message.
func (q *Queue) NotifyTransient(message string, severity model.Severity) model.Notification {
	return q.show(message, severity, TransientTimeout)
}

func (q *Queue) show(message string, severity model.Severity, timeout time.Duration) model.Notification {
	if !severity.Valid() {
		severity = model.SeverityInfo
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.visible != nil {
		q.hideLocked()
	}

	q.seq++
	n := model.Notification{
		ID:        q.seq,
		Message:   message,
		Severity:  severity,
		CreatedAt: q.clock.Now(),
	}
	q.visible = &n
	if q.display != nil {
		q.display.Show(n)
	}
	q.logger.Debug("notification shown",
		zap.Uint64("id", n.ID),
		zap.String("severity", string(severity)),
		zap.String("message", message))

	id := n.ID
	q.expiry.Schedule(timeout, func() { q.expire(id) })
	return n
}

// Dismiss removes the visible notification and cancels its auto-removal.
// It reports whether anything was visible.
func (q *Queue) Dismiss() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.expiry.Cancel()
	if q.visible == nil {
		return false
	}
	q.hideLocked()
	return true
}

// Visible returns the notification on screen, if any.
func (q *Queue) Visible() (model.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.visible == nil {
		return model.Notification{}, false
	}
	return *q.visible, true
}

func (q *Queue) expire(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.visible == nil || q.visible.ID != id {
		return
	}
	q.hideLocked()
}

func (q *Queue) hideLocked() {
	n := *q.visible
	q.visible = nil
	if q.display != nil {
		q.display.Hide(n)
	}
}
