package notify

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"portfolio/model"
	"portfolio/scheduler/schedulertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	op  string
	id  uint64
	msg string
}

type recordingDisplay struct {
	mu      sync.Mutex
	events  []event
	visible int
	maxSeen int
}

func (d *recordingDisplay) Show(n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event{"show", n.ID, n.Message})
	d.visible++
	if d.visible > d.maxSeen {
		d.maxSeen = d.visible
	}
}

func (d *recordingDisplay) Hide(n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event{"hide", n.ID, n.Message})
	d.visible--
}

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestNotifyAutoRemovesAfterStandardTimeout(t *testing.T) {
	clock := schedulertest.NewClock(epoch)
	disp := &recordingDisplay{}
	q := NewQueue(disp, clock, nil)

	n := q.Notify("Saved", model.SeveritySuccess)
	assert.Equal(t, epoch, n.CreatedAt)
	got, ok := q.Visible()
	require.True(t, ok)
	assert.Equal(t, "Saved", got.Message)

	clock.Advance(StandardTimeout - time.Millisecond)
	_, ok = q.Visible()
	assert.True(t, ok, "removed too early")

	clock.Advance(time.Millisecond)
	_, ok = q.Visible()
	assert.False(t, ok)
	assert.Equal(t, []event{{"show", 1, "Saved"}, {"hide", 1, "Saved"}}, disp.events)
}

func TestNotifyTransientTimeout(t *testing.T) {
	clock := schedulertest.NewClock(epoch)
	q := NewQueue(&recordingDisplay{}, clock, nil)

	q.NotifyTransient("Theme changed", model.SeverityInfo)
	clock.Advance(TransientTimeout)
	_, ok := q.Visible()
	assert.False(t, ok)
}

func TestLastWriterWins(t *testing.T) {
	clock := schedulertest.NewClock(epoch)
	disp := &recordingDisplay{}
	q := NewQueue(disp, clock, nil)

	q.Notify("first", model.SeverityInfo)
	clock.Advance(4 * time.Second)
	q.Notify("second", model.SeverityWarning)

	// first's timer would have fired here; it must not remove second.
	clock.Advance(2 * time.Second)
	got, ok := q.Visible()
	require.True(t, ok)
	assert.Equal(t, "second", got.Message)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(3 * time.Second)
	_, ok = q.Visible()
	assert.False(t, ok)

	assert.Equal(t, 1, disp.maxSeen, "more than one notification visible at once")
	assert.Equal(t, []event{
		{"show", 1, "first"},
		{"hide", 1, "first"},
		{"show", 2, "second"},
		{"hide", 2, "second"},
	}, disp.events)
}

func TestDismissCancelsAutoRemoval(t *testing.T) {
	clock := schedulertest.NewClock(epoch)
	disp := &recordingDisplay{}
	q := NewQueue(disp, clock, nil)

	assert.False(t, q.Dismiss())

	q.Notify("hello", model.SeverityInfo)
	require.Equal(t, 1, clock.Pending())
	assert.True(t, q.Dismiss())
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Minute)
	assert.Len(t, disp.events, 2)
}

func TestUnknownSeverityFallsBackToInfo(t *testing.T) {
	q := NewQueue(nil, schedulertest.NewClock(epoch), nil)
	n := q.Notify("x", "loud")
	assert.Equal(t, model.SeverityInfo, n.Severity)
}

func TestConcurrentNotifyKeepsSingleSlot(t *testing.T) {
	disp := &recordingDisplay{}
	q := NewQueue(disp, schedulertest.NewClock(epoch), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Notify("msg", model.SeverityInfo)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, disp.maxSeen)
	assert.Equal(t, 1, disp.visible)
}

func TestTerminalDisplay(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf)
	Multi{d}.Show(model.Notification{Message: "Message saved locally.", Severity: model.SeverityWarning})
	Multi{d}.Hide(model.Notification{})

	assert.Equal(t, "▲ Message saved locally.", strings.TrimSpace(buf.String()))
}
