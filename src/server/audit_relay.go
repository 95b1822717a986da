package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"autonomity/src/database"
	"autonomity/src/datamodels"
)

// AuditEvent is the websocket payload for one committed audit entry.
type AuditEvent struct {
	SimulationId string `json:"simulation_id"`
	Kind         string `json:"kind"`
	EntryId      string `json:"entry_id"`
}

type auditSubscription struct {
	simulationId string
	subscriberId string
}

// followAudit moves the relay to simulationId, dropping the subscription of
// the previous run. Callers hold s.mutex.
func (s *Server) followAudit(simulationId string) {
	if s.auditFeed == nil {
		return
	}
	if s.auditSub != nil {
		if s.auditSub.simulationId == simulationId {
			return
		}
		if err := s.auditFeed.UnsubscribeAudit(s.auditSub.simulationId, s.auditSub.subscriberId); err != nil {
			slog.Warn("Failed to drop audit subscription", "simulationId", s.auditSub.simulationId, "error", err)
		}
		s.auditSub = nil
	}

	subscriberId, events, err := s.auditFeed.SubscribeAudit(context.Background(), simulationId)
	if err != nil {
		slog.Error("Failed to follow audit events", "simulationId", simulationId, "error", err)
		return
	}
	s.auditSub = &auditSubscription{simulationId: simulationId, subscriberId: subscriberId}
	go s.relayAudit(simulationId, events)
}

// relayAudit runs until the feed closes events.
func (s *Server) relayAudit(simulationId string, events <-chan string) {
	for msg := range events {
		kind, entryId, ok := strings.Cut(msg, ":")
		if !ok {
			slog.Warn("Ignoring malformed audit event", "simulationId", simulationId, "event", msg)
			continue
		}
		payload, err := json.Marshal(AuditEvent{SimulationId: simulationId, Kind: kind, EntryId: entryId})
		if err != nil {
			slog.Error("Failed to encode audit event", "error", err)
			continue
		}
		metric := datamodels.Metric{
			MetricGeneratorId:   simulationId,
			MetricGeneratorName: database.AuditNotifyChannel,
			MetricGeneratorType: datamodels.MetricGeneratorTypeAudit,
			MetricTime:          time.Now(),
			MetricName:          datamodels.MetricNameAuditEvent,
			MetricValue:         payload,
		}
		if err := s.wsWriter.Write(context.Background(), metric); err != nil {
			slog.Warn("Failed to relay audit event", "simulationId", simulationId, "error", err)
		}
	}
}

// stopAudit releases the current subscription.
func (s *Server) stopAudit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.auditFeed == nil || s.auditSub == nil {
		return
	}
	if err := s.auditFeed.UnsubscribeAudit(s.auditSub.simulationId, s.auditSub.subscriberId); err != nil {
		slog.Warn("Failed to drop audit subscription", "simulationId", s.auditSub.simulationId, "error", err)
	}
	s.auditSub = nil
}
