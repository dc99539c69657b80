package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Message
	failures int
	block    chan struct{}
}

func (f *fakeMailer) Send(_ context.Context, msg Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("temporary failure")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, DispatcherConfig{Workers: 2, QueueSize: 10}, zap.NewNop())
	d.Start()

	for range 5 {
		require.NoError(t, d.Enqueue(Message{To: "a@b.c", Subject: "s"}))
	}
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, 5, mailer.sentCount())
	assert.ErrorIs(t, d.Enqueue(Message{To: "a@b.c", Subject: "s"}), ErrDispatcherClosed)
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(mailer, DispatcherConfig{Workers: 1, QueueSize: 1, MaxRetries: 2, RetryBackoff: time.Millisecond}, zap.New(core))
	d.Start()

	require.NoError(t, d.Enqueue(Message{To: "a@b.c", Subject: "s"}))
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, 1, mailer.sentCount())
	assert.Equal(t, 2, logs.FilterMessage("mail send failed").Len())
	assert.Zero(t, logs.FilterMessage("mail delivery failed, giving up").Len())
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	mailer := &fakeMailer{failures: 10}
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(mailer, DispatcherConfig{Workers: 1, QueueSize: 1, MaxRetries: 1, RetryBackoff: time.Millisecond}, zap.New(core))
	d.Start()

	require.NoError(t, d.Enqueue(Message{To: "a@b.c", Subject: "s"}))
	require.NoError(t, d.Stop(context.Background()))

	assert.Zero(t, mailer.sentCount())
	assert.Equal(t, 1, logs.FilterMessage("mail delivery failed, giving up").Len())
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, DispatcherConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	d.Start()

	// first message is taken by the worker and blocks; the second fills the queue
	require.NoError(t, d.Enqueue(Message{To: "a@b.c", Subject: "1"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Enqueue(Message{To: "a@b.c", Subject: "2"}))

	assert.ErrorIs(t, d.Enqueue(Message{To: "a@b.c", Subject: "3"}), ErrQueueFull)

	close(mailer.block)
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 2, mailer.sentCount())
}

func TestDispatcher_RejectsInvalidMessage(t *testing.T) {
	d := NewDispatcher(&fakeMailer{}, DispatcherConfig{}, zap.NewNop())
	assert.ErrorIs(t, d.Enqueue(Message{}), ErrInvalidMessage)
}
