// Package contact submits the contact form to the backend and keeps
// submissions that cannot be delivered in a local fallback queue until a
// later health probe finds the backend reachable again.
package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"portfolio/logging"
	"portfolio/model"
	"portfolio/scheduler"
)

const DefaultProbeInterval = 30 * time.Second

// User-facing messages.
const (
	MsgRequiredFields = "Please fill in all required fields"
	MsgInvalidEmail   = "Please enter a valid email address"
	MsgTooLong        = "Message is too long"
	MsgSavedLocally   = "Message saved locally. Will send when connection is restored."
	MsgSaveFailed     = "Failed to connect to server. Please try again later."
	MsgSent           = "Message sent."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Transport delivers submissions and health probes to the backend.
type Transport interface {
	Submit(ctx context.Context, fields model.ContactFields) (model.Ack, error)
	Health(ctx context.Context) (model.HealthStatus, error)
}

// Queue is the local fallback store for undelivered submissions.
type Queue interface {
	Append(p model.PendingContact) error
	List() ([]model.PendingContact, error)
	Remove(id string) error
}

type Notifier interface {
	Notify(message string, severity model.Severity) model.Notification
}

// Form is cleared after a successful delivery.
type Form interface {
	Reset()
}

// Outcome is what Submit did with a submission.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeDelivered
	OutcomeQueued
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// DrainResult summarizes one pass over the fallback queue.
type DrainResult struct {
	Sent      int
	Rejected  int
	Remaining int
}

// Client submits contact forms and drains the fallback queue.
type Client struct {
	transport Transport
	queue     Queue
	notifier  Notifier
	form      Form
	clock     scheduler.Clock
	interval  time.Duration
	newID     func() string
	logger    *zap.Logger

	drains singleflight.Group

	mu        sync.Mutex
	reachable bool
	probed    bool
}

type Option func(*Client)

func WithForm(f Form) Option { return func(c *Client) { c.form = f } }

func WithClock(clock scheduler.Clock) Option { return func(c *Client) { c.clock = clock } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

func WithProbeInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithIDGenerator(fn func() string) Option { return func(c *Client) { c.newID = fn } }

// NewClient creates a client that queues into queue when transport cannot
// reach the backend.
func NewClient(transport Transport, queue Queue, notifier Notifier, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		queue:     queue,
		notifier:  notifier,
		clock:     scheduler.RealClock{},
		interval:  DefaultProbeInterval,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).Named("contact")
	return c
}

// Normalize trims every field and fills in the default subject.
func Normalize(f model.ContactFields) model.ContactFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
	if f.Subject == "" {
		f.Subject = model.DefaultSubject
	}
	return f
}

// Validate checks a normalized submission.
func Validate(f model.ContactFields) error {
	switch {
	case f.Name == "":
		return &ValidationError{Field: "name", Message: MsgRequiredFields}
	case f.Email == "":
		return &ValidationError{Field: "email", Message: MsgRequiredFields}
	case f.Message == "":
		return &ValidationError{Field: "message", Message: MsgRequiredFields}
	case !emailPattern.MatchString(f.Email):
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	case encodedSize(f) > model.MaxContactBytes:
		return &ValidationError{Field: "message", Message: MsgTooLong}
	}
	return nil
}

// encodedSize is the request body size the backend will see for f.
func encodedSize(f model.ContactFields) int {
	b, _ := json.Marshal(f)
	return len(b)
}

// Submit validates and delivers a contact form. Invalid input never reaches
// the network. When the backend cannot be reached the submission is queued
// locally and OutcomeQueued is returned with a nil error.
func (c *Client) Submit(ctx context.Context, fields model.ContactFields) (Outcome, error) {
	f := Normalize(fields)
	if err := Validate(f); err != nil {
		c.notify(err.(*ValidationError).Message, model.SeverityError)
		return OutcomeRejected, err
	}

	ack, err := c.transport.Submit(ctx, f)
	switch {
	case err == nil:
		c.setReachable(true)
		if c.form != nil {
			c.form.Reset()
		}
		msg := ack.Message
		if msg == "" {
			msg = MsgSent
		}
		c.notify(msg, model.SeveritySuccess)
		c.logger.Info("contact delivered", zap.String("email", f.Email))
		return OutcomeDelivered, nil

	case IsServer(err):
		c.setReachable(true)
		c.notify(serverMessage(err), model.SeverityError)
		c.logger.Warn("contact rejected by server", zap.Error(err))
		return OutcomeFailed, err
	}

	c.setReachable(false)
	c.logger.Warn("backend unreachable, queueing contact", zap.Error(err))

	pending := model.PendingContact{
		ContactFields: f,
		ID:            c.newID(),
		Timestamp:     c.clock.Now().UTC(),
	}
	if qerr := c.queue.Append(pending); qerr != nil {
		c.notify(MsgSaveFailed, model.SeverityError)
		return OutcomeFailed, fmt.Errorf("queue contact after %v: %w", err, qerr)
	}
	c.notify(MsgSavedLocally, model.SeverityWarning)
	return OutcomeQueued, nil
}

// Probe checks backend reachability. When reachable and submissions are
// waiting, the fallback queue is drained.
func (c *Client) Probe(ctx context.Context) bool {
	h, err := c.transport.Health(ctx)
	ok := err == nil && strings.EqualFold(h.Status, "OK")

	wasReachable, wasProbed := c.swapReachable(ok)
	switch {
	case !ok:
		if wasReachable || !wasProbed {
			c.logger.Warn("backend unreachable", zap.Error(err))
		}
		return false
	case !wasReachable:
		c.logger.Info("backend reachable", zap.String("version", h.Version))
	}

	pending, err := c.queue.List()
	if err != nil {
		c.logger.Error("read fallback queue", zap.Error(err))
		return true
	}
	if len(pending) > 0 {
		if _, err := c.Drain(ctx); err != nil {
			c.logger.Warn("drain interrupted", zap.Error(err))
		}
	}
	return true
}

// Drain resubmits queued entries in insertion order, one at a time. Each
// entry is removed as soon as the backend acknowledges it or rejects its
// content with a 4xx. The pass stops at the first network failure or 5xx
// and keeps the rest. Concurrent callers share a single pass.
func (c *Client) Drain(ctx context.Context) (DrainResult, error) {
	v, err, shared := c.drains.Do("drain", func() (any, error) {
		return c.drain(ctx)
	})
	if shared {
		c.logger.Debug("joined in-flight drain")
	}
	return v.(DrainResult), err
}

func (c *Client) drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := c.queue.List()
	if err != nil {
		return res, fmt.Errorf("read fallback queue: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}
	c.logger.Info("syncing saved contacts", zap.Int("count", len(pending)))

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			res.Remaining = len(pending) - i
			return res, err
		}

		_, err := c.transport.Submit(ctx, p.ContactFields)
		switch {
		case err == nil:
			res.Sent++
		case isRejection(err):
			// Content rejections are final: drop the entry and report it.
			res.Rejected++
			c.logger.Error("saved contact rejected by server",
				zap.String("id", p.ID),
				zap.String("email", p.Email),
				zap.Error(err))
			c.notify("A saved message was rejected by the server: "+serverMessage(err), model.SeverityError)
		default:
			// Unreachable or a 5xx: the backend stored nothing, keep the rest.
			if IsNetwork(err) {
				c.setReachable(false)
			}
			res.Remaining = len(pending) - i
			return res, err
		}

		if err := c.queue.Remove(p.ID); err != nil {
			res.Remaining = len(pending) - i
			return res, fmt.Errorf("remove %s from fallback queue: %w", p.ID, err)
		}
	}

	c.logger.Info("saved contacts synced", zap.Int("sent", res.Sent), zap.Int("rejected", res.Rejected))
	return res, nil
}

// Run probes immediately and then at the probe interval until ctx ends.
func (c *Client) Run(ctx context.Context) {
	c.Probe(ctx)

	iv := scheduler.NewInterval("health-probe", c.interval, func(ctx context.Context, _ time.Time) {
		c.Probe(ctx)
	}, c.clock, c.logger)
	iv.Start(ctx)
	<-ctx.Done()
	iv.Stop()
}

type pageViewer interface {
	PageView(ctx context.Context, view map[string]any) error
}

// TrackPageView reports a page view. Failures are logged at debug level only.
func (c *Client) TrackPageView(ctx context.Context, page, referrer, screenSize string) {
	pv, ok := c.transport.(pageViewer)
	if !ok {
		return
	}
	if referrer == "" {
		referrer = "direct"
	}
	view := map[string]any{
		"page":      page,
		"referrer":  referrer,
		"timestamp": c.clock.Now().UTC().Format(time.RFC3339),
	}
	if screenSize != "" {
		view["screenSize"] = screenSize
	}
	if err := pv.PageView(ctx, view); err != nil {
		c.logger.Debug("page view not tracked", zap.Error(err))
	}
}

// Reachable reports the result of the most recent probe or submission.
func (c *Client) Reachable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reachable
}

func (c *Client) setReachable(ok bool) {
	c.swapReachable(ok)
}

func (c *Client) swapReachable(ok bool) (prev, probed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, probed = c.reachable, c.probed
	c.reachable, c.probed = ok, true
	return prev, probed
}

func (c *Client) notify(msg string, sev model.Severity) {
	if c.notifier != nil {
		c.notifier.Notify(msg, sev)
	}
}
