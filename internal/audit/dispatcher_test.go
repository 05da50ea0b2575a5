package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fitgoal/fitAuth/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	events  []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func TestDispatcherDeliversAndStampsTimestamp(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{Type: "login", AccountID: "acct-1", Success: true})

	select {
	case got := <-sink.Events():
		assert.Equal(t, "login", got.Type)
		assert.Equal(t, "acct-1", got.AccountID)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDispatcherDisabledIsNilAndSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	require.Nil(t, d)

	d.Emit(context.Background(), Event{Type: "ignored"})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: "login"})
	}
	assert.Positive(t, d.Dropped())

	close(sink.release)
	d.Close()
}

func TestDispatcherCloseFlushesBuffered(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, NewJSONWriterSink(&buf))

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{Type: "register", Success: true})
	}
	d.Close()
	d.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "register", decoded.Type)

	// Emit after Close is a no-op.
	d.Emit(context.Background(), Event{Type: "late"})
}

func TestLoggerSinkWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "text", "info")
	require.NoError(t, err)

	NewLoggerSink(log).Emit(context.Background(), Event{
		Type:      "login",
		AccountID: "acct-1",
		Reason:    "invalid_credential",
		Metadata:  map[string]string{"method": "password"},
	})

	out := buf.String()
	assert.Contains(t, out, "msg=audit")
	assert.Contains(t, out, "type=login")
	assert.Contains(t, out, "account_id=acct-1")
	assert.Contains(t, out, "reason=invalid_credential")
	assert.Contains(t, out, "meta_method=password")
}
