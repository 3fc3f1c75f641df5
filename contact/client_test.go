package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"portfolio/model"
	"portfolio/scheduler/schedulertest"
	"portfolio/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeTransport struct {
	mu        sync.Mutex
	submitted []model.ContactFields
	healthy   bool
	// submitErr returns the error for the n-th call (0-based); nil means success.
	submitErr func(n int, f model.ContactFields) error
	block     chan struct{}
	views     []map[string]any
}

func (f *fakeTransport) Submit(_ context.Context, fields model.ContactFields) (model.Ack, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.submitted)
	f.submitted = append(f.submitted, fields)
	if f.submitErr != nil {
		if err := f.submitErr(n, fields); err != nil {
			return model.Ack{}, err
		}
	}
	return model.Ack{Success: true, Message: "Thank you for your message!"}, nil
}

func (f *fakeTransport) Health(context.Context) (model.HealthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return model.HealthStatus{}, &NetworkError{Op: "health", Err: errors.New("connection refused")}
	}
	return model.HealthStatus{Status: "OK", Version: "1.0.0"}, nil
}

func (f *fakeTransport) PageView(_ context.Context, view map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
	return nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func (f *fakeTransport) setHealthy(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = ok
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []model.Notification
}

func (r *recordingNotifier) Notify(message string, severity model.Severity) model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := model.Notification{ID: uint64(len(r.msgs) + 1), Message: message, Severity: severity}
	r.msgs = append(r.msgs, n)
	return n
}

func (r *recordingNotifier) last() model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return model.Notification{}
	}
	return r.msgs[len(r.msgs)-1]
}

type countingForm struct{ resets int }

func (f *countingForm) Reset() { f.resets++ }

func unreachable(int, model.ContactFields) error {
	return &NetworkError{Op: "submit contact", Err: errors.New("dial tcp: connection refused")}
}

type fixture struct {
	transport *fakeTransport
	queue     *storage.FallbackQueue
	notifier  *recordingNotifier
	form      *countingForm
	clock     *schedulertest.Clock
	client    *Client
}

func newFixture(t *testing.T, transport *fakeTransport) *fixture {
	t.Helper()
	f := &fixture{
		transport: transport,
		queue:     storage.NewFallbackQueue(storage.NewLocal(t.TempDir())),
		notifier:  &recordingNotifier{},
		form:      &countingForm{},
		clock:     schedulertest.NewClock(epoch),
	}
	var seq int
	f.client = NewClient(transport, f.queue, f.notifier,
		WithForm(f.form),
		WithClock(f.clock),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return f
}

func (f *fixture) pending(t *testing.T) []model.PendingContact {
	t.Helper()
	items, err := f.queue.List()
	require.NoError(t, err)
	return items
}

var valid = model.ContactFields{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "Hello there"}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields model.ContactFields
		field  string
		msg    string
	}{
		{"empty message", model.ContactFields{Name: "Ada", Email: "ada@example.com"}, "message", MsgRequiredFields},
		{"whitespace message", model.ContactFields{Name: "Ada", Email: "ada@example.com", Message: "   "}, "message", MsgRequiredFields},
		{"missing name", model.ContactFields{Email: "ada@example.com", Message: "hi"}, "name", MsgRequiredFields},
		{"missing email", model.ContactFields{Name: "Ada", Message: "hi"}, "email", MsgRequiredFields},
		{"bad email", model.ContactFields{Name: "Ada", Email: "ada@example", Message: "hi"}, "email", MsgInvalidEmail},
		{"email with space", model.ContactFields{Name: "Ada", Email: "ada @example.com", Message: "hi"}, "email", MsgInvalidEmail},
		{"oversize message", model.ContactFields{Name: "Ada", Email: "ada@example.com", Message: strings.Repeat("x", 70*1024)}, "message", MsgTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, &fakeTransport{healthy: true})

			out, err := fx.client.Submit(context.Background(), tt.fields)
			require.Error(t, err)
			assert.Equal(t, OutcomeRejected, out)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			assert.Zero(t, fx.transport.calls(), "validation failure reached the network")
			assert.Empty(t, fx.pending(t))
			assert.Equal(t, model.Notification{ID: 1, Message: tt.msg, Severity: model.SeverityError}, fx.notifier.last())
		})
	}
}

func TestSubmitDelivered(t *testing.T) {
	fx := newFixture(t, &fakeTransport{healthy: true})

	out, err := fx.client.Submit(context.Background(), model.ContactFields{
		Name: "  Ada ", Email: "ada@example.com", Message: " Hello ",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, out)
	assert.Equal(t, 1, fx.form.resets)
	assert.True(t, fx.client.Reachable())

	require.Len(t, fx.transport.submitted, 1)
	assert.Equal(t, model.ContactFields{
		Name: "Ada", Email: "ada@example.com", Subject: model.DefaultSubject, Message: "Hello",
	}, fx.transport.submitted[0])

	last := fx.notifier.last()
	assert.Equal(t, model.SeveritySuccess, last.Severity)
	assert.Equal(t, "Thank you for your message!", last.Message)
	assert.Empty(t, fx.pending(t))
}

func TestSubmitUnreachableQueuesExactlyOnce(t *testing.T) {
	fx := newFixture(t, &fakeTransport{submitErr: unreachable})

	out, err := fx.client.Submit(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, out)
	assert.False(t, fx.client.Reachable())
	assert.Zero(t, fx.form.resets)

	want := []model.PendingContact{{ContactFields: valid, ID: "id-1", Timestamp: epoch}}
	if diff := cmp.Diff(want, fx.pending(t)); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.Notification{ID: 1, Message: MsgSavedLocally, Severity: model.SeverityWarning}, fx.notifier.last())
}

func TestSubmitServerErrorIsNotQueued(t *testing.T) {
	fx := newFixture(t, &fakeTransport{submitErr: func(int, model.ContactFields) error {
		return &ServerError{Status: 500, Message: "Internal server error"}
	}})

	out, err := fx.client.Submit(context.Background(), valid)
	require.Error(t, err)
	assert.True(t, IsServer(err))
	assert.Equal(t, OutcomeFailed, out)
	assert.Empty(t, fx.pending(t))
	assert.Equal(t, "Internal server error", fx.notifier.last().Message)
	assert.Equal(t, model.SeverityError, fx.notifier.last().Severity)
}

func queueN(t *testing.T, fx *fixture, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f := valid
		f.Message = fmt.Sprintf("message %d", i)
		require.NoError(t, fx.queue.Append(model.PendingContact{ContactFields: f, ID: fmt.Sprintf("q-%d", i), Timestamp: epoch}))
	}
}

func TestProbeDrainsQueue(t *testing.T) {
	ft := &fakeTransport{}
	fx := newFixture(t, ft)
	queueN(t, fx, 3)

	assert.False(t, fx.client.Probe(context.Background()))
	assert.Len(t, fx.pending(t), 3)
	assert.Zero(t, ft.calls())

	ft.setHealthy(true)
	assert.True(t, fx.client.Probe(context.Background()))
	assert.Empty(t, fx.pending(t))

	require.Len(t, ft.submitted, 3)
	for i, f := range ft.submitted {
		assert.Equal(t, fmt.Sprintf("message %d", i), f.Message, "drain must preserve insertion order")
	}
}

func TestDrainStopsAtFirstNetworkFailure(t *testing.T) {
	ft := &fakeTransport{healthy: true, submitErr: func(n int, f model.ContactFields) error {
		if n == 2 {
			return unreachable(n, f)
		}
		return nil
	}}
	fx := newFixture(t, ft)
	queueN(t, fx, 4)

	res, err := fx.client.Drain(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, DrainResult{Sent: 2, Remaining: 2}, res)
	assert.Equal(t, 3, ft.calls())

	left := fx.pending(t)
	require.Len(t, left, 2)
	assert.Equal(t, "q-2", left[0].ID)
	assert.Equal(t, "q-3", left[1].ID)
	assert.False(t, fx.client.Reachable())
}

func TestDrainDropsServerRejections(t *testing.T) {
	ft := &fakeTransport{healthy: true, submitErr: func(n int, _ model.ContactFields) error {
		if n == 1 {
			return &ServerError{Status: 400, Message: "Name, email, and message are required"}
		}
		return nil
	}}
	fx := newFixture(t, ft)
	queueN(t, fx, 3)

	res, err := fx.client.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Sent: 2, Rejected: 1}, res)
	assert.Empty(t, fx.pending(t))
	assert.Equal(t, model.SeverityError, fx.notifier.last().Severity)
	assert.Contains(t, fx.notifier.last().Message, "Name, email, and message are required")
}

func TestDrainKeepsEntryOn5xx(t *testing.T) {
	ft := &fakeTransport{healthy: true, submitErr: func(n int, _ model.ContactFields) error {
		if n == 1 {
			return &ServerError{Status: 500, Message: "Internal server error"}
		}
		return nil
	}}
	fx := newFixture(t, ft)
	queueN(t, fx, 3)

	res, err := fx.client.Drain(context.Background())
	require.Error(t, err)
	assert.True(t, IsServer(err))
	assert.Equal(t, DrainResult{Sent: 1, Remaining: 2}, res)
	assert.Equal(t, 2, ft.calls())

	left := fx.pending(t)
	require.Len(t, left, 2)
	assert.Equal(t, "q-1", left[0].ID)
	assert.Equal(t, "q-2", left[1].ID)
	assert.True(t, fx.client.Reachable(), "a 5xx still means the backend answered")
	assert.Empty(t, fx.notifier.msgs)
}

func TestSubmitOversizeOfflineIsNotQueued(t *testing.T) {
	fx := newFixture(t, &fakeTransport{submitErr: unreachable})

	f := valid
	f.Message = strings.Repeat("x", model.MaxContactBytes)
	out, err := fx.client.Submit(context.Background(), f)
	assert.True(t, IsValidation(err))
	assert.Equal(t, OutcomeRejected, out)
	assert.Empty(t, fx.pending(t))
	assert.Zero(t, fx.transport.calls())
}

func TestDrainEmptyQueue(t *testing.T) {
	fx := newFixture(t, &fakeTransport{healthy: true})
	res, err := fx.client.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)
}

func TestDrainCancelledContext(t *testing.T) {
	fx := newFixture(t, &fakeTransport{healthy: true})
	queueN(t, fx, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := fx.client.Drain(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Remaining)
	assert.Len(t, fx.pending(t), 2)
}

func TestConcurrentDrainsShareOnePass(t *testing.T) {
	ft := &fakeTransport{healthy: true, block: make(chan struct{})}
	fx := newFixture(t, ft)
	queueN(t, fx, 2)

	const callers = 5
	var (
		wg      sync.WaitGroup
		started atomic.Int32
		results = make([]DrainResult, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			res, err := fx.client.Drain(context.Background())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	require.Eventually(t, func() bool { return started.Load() == callers }, time.Second, time.Millisecond)
	// Give the late callers a moment to join the in-flight pass.
	time.Sleep(20 * time.Millisecond)
	close(ft.block)
	wg.Wait()

	assert.Equal(t, 2, ft.calls(), "each queued entry must be sent once")
	assert.Empty(t, fx.pending(t))
}

func TestRunProbesOnInterval(t *testing.T) {
	ft := &fakeTransport{}
	fx := newFixture(t, ft)
	fx.client = NewClient(ft, fx.queue, fx.notifier, WithClock(fx.clock), WithProbeInterval(10*time.Second))
	queueN(t, fx, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fx.client.Run(ctx)
		close(done)
	}()

	ft.setHealthy(true)
	require.Eventually(t, func() bool {
		fx.clock.Advance(10 * time.Second)
		items, err := fx.queue.List()
		return err == nil && len(items) == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, fx.client.Reachable())

	cancel()
	<-done
}

func TestTrackPageView(t *testing.T) {
	ft := &fakeTransport{}
	fx := newFixture(t, ft)

	fx.client.TrackPageView(context.Background(), "/projects", "", "1920x1080")
	require.Len(t, ft.views, 1)
	assert.Equal(t, map[string]any{
		"page":       "/projects",
		"referrer":   "direct",
		"screenSize": "1920x1080",
		"timestamp":  "2024-06-01T09:00:00Z",
	}, ft.views[0])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "delivered", OutcomeDelivered.String())
	assert.Equal(t, "queued", OutcomeQueued.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
}
