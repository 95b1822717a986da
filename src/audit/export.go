package audit

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"autonomity/src/datamodels"
)

var tradeLogHeader = []string{
	"id", "simulation_id", "timestamp", "step", "agent_name", "action", "ticker",
	"price", "quantity", "portfolio_value", "agent_reason", "regulator_decision", "regulator_reason",
}

var regulationLogHeader = []string{
	"id", "simulation_id", "timestamp", "step", "agent_name", "rule_name", "decision", "explanation",
}

func cents(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func WriteTradeLogCsv(w io.Writer, entries []datamodels.TradeLogEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tradeLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.Id,
			e.SimulationId,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(e.Step),
			e.AgentName,
			string(e.Action),
			e.Ticker,
			cents(e.Price),
			strconv.Itoa(e.Quantity),
			cents(e.PortfolioValue),
			e.AgentReason,
			string(e.RegulatorDecision),
			e.RegulatorReason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteRegulationLogCsv(w io.Writer, entries []datamodels.RegulationLogEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(regulationLogHeader); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.Id,
			e.SimulationId,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(e.Step),
			e.AgentName,
			e.RuleName,
			string(e.Decision),
			e.Explanation,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
