//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomity/src/config"
	"autonomity/src/datamodels"
)

func TestMainIntegration(t *testing.T) {
	// requires a reachable postgres migrated with atlas
	config, err := config.Load()
	require.NoError(t, err)
	db, err := NewDBConnection(config.PostgresConfig)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	simulationId := uuid.New().String()
	feed := db.GetAuditFeed()
	require.NotNil(t, feed)
	subscriberId, events, err := feed.SubscribeAudit(ctx, simulationId)
	require.NoError(t, err)
	defer feed.UnsubscribeAudit(simulationId, subscriberId)

	entry := datamodels.TradeLogEntry{
		Id:                uuid.New().String(),
		SimulationId:      simulationId,
		Timestamp:         time.Now(),
		AgentName:         "Conservative",
		Action:            datamodels.ActionHold,
		Ticker:            "AAPL",
		RegulatorDecision: datamodels.ReviewApprove,
	}
	require.NoError(t, db.WriteTradeLogEntry(ctx, entry))

	select {
	case msg := <-events:
		assert.Equal(t, "trade:"+entry.Id, msg)
	case <-ctx.Done():
		t.Fatal("no audit notification received")
	}

	entries, err := db.GetTradeLog(ctx, simulationId, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
