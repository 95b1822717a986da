package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	listening map[string]bool
	closed    bool
}

func newFakeListener() *fakeListener {
	return &fakeListener{listening: map[string]bool{}}
}

func (l *fakeListener) Listen(channel string) error {
	l.listening[channel] = true
	return nil
}

func (l *fakeListener) Unlisten(channel string) error {
	delete(l.listening, channel)
	return nil
}

func (l *fakeListener) UnlistenAll() error {
	l.listening = map[string]bool{}
	return nil
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

func TestAuditFeedDeliversPerSimulation(t *testing.T) {
	listener := newFakeListener()
	nm := newNotificationManager(listener)
	ctx := context.Background()

	subA, eventsA, err := nm.SubscribeAudit(ctx, "sim-a")
	require.NoError(t, err)
	_, eventsB, err := nm.SubscribeAudit(ctx, "sim-b")
	require.NoError(t, err)
	assert.True(t, listener.listening[AuditNotifyChannel])

	nm.deliver(AuditNotifyChannel, "sim-a;trade:t1")
	nm.deliver(AuditNotifyChannel, "malformed")
	nm.deliver("other_channel", "sim-a;trade:t2")

	require.Len(t, eventsA, 1)
	assert.Equal(t, "trade:t1", <-eventsA)
	assert.Empty(t, eventsB)

	require.NoError(t, nm.UnsubscribeAudit("sim-a", subA))
	_, open := <-eventsA
	assert.False(t, open, "unsubscribing closes the channel")
	assert.True(t, listener.listening[AuditNotifyChannel], "sim-b still listens")
}

func TestAuditFeedUnlistensWhenEmpty(t *testing.T) {
	listener := newFakeListener()
	nm := newNotificationManager(listener)

	sub, _, err := nm.SubscribeAudit(context.Background(), "sim-a")
	require.NoError(t, err)
	require.NoError(t, nm.UnsubscribeAudit("sim-a", sub))
	assert.False(t, listener.listening[AuditNotifyChannel])

	assert.Error(t, nm.UnsubscribeAudit("sim-a", sub))
}

func TestAuditFeedDropsWhenSubscriberIsFull(t *testing.T) {
	nm := newNotificationManager(newFakeListener())
	_, events, err := nm.SubscribeAudit(context.Background(), "sim-a")
	require.NoError(t, err)

	for i := 0; i < auditEventBuffer+5; i++ {
		nm.deliver(AuditNotifyChannel, "sim-a;regulation:r")
	}
	assert.Len(t, events, auditEventBuffer)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	listener := newFakeListener()
	nm := newNotificationManager(listener)
	_, events, err := nm.SubscribeAudit(context.Background(), "sim-a")
	require.NoError(t, err)

	require.NoError(t, nm.Close())
	_, open := <-events
	assert.False(t, open)
	assert.True(t, listener.closed)
}

func TestSQLiteHasNoAuditFeed(t *testing.T) {
	assert.Nil(t, newTestDatabase(t).GetAuditFeed())
}
