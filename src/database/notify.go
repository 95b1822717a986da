package database

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"autonomity/src/utils/errors"
)

// AuditFeed streams "<kind>:<entry id>" events for one simulation as its audit
// entries are committed.
type AuditFeed interface {
	SubscribeAudit(ctx context.Context, simulationId string) (string, <-chan string, error)
	UnsubscribeAudit(simulationId, subscriberId string) error
}

// channelListener is the part of *pq.Listener the manager drives.
type channelListener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	UnlistenAll() error
	Close() error
}

const auditEventBuffer = 32

// NotificationManager fans postgres NOTIFY payloads of the form
// "<object id>;<message>" out to the subscribers of that object.
type NotificationManager struct {
	listener    channelListener
	subscribers map[string]map[string]map[string]chan string // channel -> object id -> subscriber id
	mu          sync.RWMutex
}

func NewNotificationManager(db *gorm.DB) (*NotificationManager, error) {
	dialector, ok := db.Config.Dialector.(*postgres.Dialector)
	if !ok {
		return nil, errors.New("notifications require a postgres connection")
	}
	listener := pq.NewListener(dialector.DSN, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("Notification listener event", "event", event, "error", err)
		}
	})
	nm := newNotificationManager(listener)
	go nm.dispatch(listener.Notify)
	return nm, nil
}

func newNotificationManager(listener channelListener) *NotificationManager {
	return &NotificationManager{
		listener:    listener,
		subscribers: make(map[string]map[string]map[string]chan string),
	}
}

func (nm *NotificationManager) dispatch(notifications <-chan *pq.Notification) {
	for notification := range notifications {
		// nil marks a reconnect; missed payloads are not replayed
		if notification == nil {
			continue
		}
		nm.deliver(notification.Channel, notification.Extra)
	}
}

func (nm *NotificationManager) deliver(channel, payload string) {
	objectId, msg, ok := strings.Cut(payload, ";")
	if !ok {
		slog.Error("Invalid notification payload", "channel", channel, "payload", payload)
		return
	}

	nm.mu.RLock()
	defer nm.mu.RUnlock()
	for subscriberId, ch := range nm.subscribers[channel][objectId] {
		select {
		case ch <- msg:
		default:
			slog.Warn("Subscriber is not keeping up, dropping notification", "channel", channel, "objectId", objectId, "subscriberId", subscriberId)
		}
	}
}

func (nm *NotificationManager) subscribe(channel, objectId string) (string, <-chan string, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, ok := nm.subscribers[channel]; !ok {
		if err := nm.listener.Listen(channel); err != nil {
			return "", nil, errors.Wrapf(err, "failed to listen on channel %s", channel)
		}
		nm.subscribers[channel] = make(map[string]map[string]chan string)
	}
	if nm.subscribers[channel][objectId] == nil {
		nm.subscribers[channel][objectId] = make(map[string]chan string)
	}

	subscriberId := uuid.New().String()
	ch := make(chan string, auditEventBuffer)
	nm.subscribers[channel][objectId][subscriberId] = ch
	slog.Debug("Subscribed to notifications", "channel", channel, "objectId", objectId, "subscriberId", subscriberId)
	return subscriberId, ch, nil
}

// unsubscribe closes the subscriber's channel and stops listening once the
// channel has no subscribers left.
func (nm *NotificationManager) unsubscribe(channel, objectId, subscriberId string) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	subs, ok := nm.subscribers[channel]
	if !ok {
		return errors.Newf("no subscribers for channel %s", channel)
	}
	if ch, ok := subs[objectId][subscriberId]; ok {
		close(ch)
		delete(subs[objectId], subscriberId)
	}
	if len(subs[objectId]) == 0 {
		delete(subs, objectId)
	}
	if len(subs) == 0 {
		delete(nm.subscribers, channel)
		if err := nm.listener.Unlisten(channel); err != nil {
			return errors.Wrapf(err, "failed to unlisten on channel %s", channel)
		}
	}
	return nil
}

func (nm *NotificationManager) SubscribeAudit(ctx context.Context, simulationId string) (string, <-chan string, error) {
	return nm.subscribe(AuditNotifyChannel, simulationId)
}

func (nm *NotificationManager) UnsubscribeAudit(simulationId, subscriberId string) error {
	return nm.unsubscribe(AuditNotifyChannel, simulationId, subscriberId)
}

func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	for _, objects := range nm.subscribers {
		for _, subs := range objects {
			for _, ch := range subs {
				close(ch)
			}
		}
	}
	nm.subscribers = make(map[string]map[string]map[string]chan string)
	nm.mu.Unlock()

	if err := nm.listener.UnlistenAll(); err != nil {
		slog.Warn("Failed to unlisten", "error", err)
	}
	return nm.listener.Close()
}

// Notify publishes "<objectId>;<payload>" on channel within the current
// transaction, if any.
func Notify(db *gorm.DB, channel, objectId, payload string) error {
	if err := db.Exec("SELECT pg_notify(?, ?)", channel, objectId+";"+payload).Error; err != nil {
		return errors.Wrapf(err, "failed to notify on %s", channel)
	}
	return nil
}
