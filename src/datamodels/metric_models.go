package datamodels

import (
	"time"
)

type MetricGeneratorType string

const (
	MetricGeneratorTypePortfolio  MetricGeneratorType = "portfolio"
	MetricGeneratorTypeAudit      MetricGeneratorType = "audit"
	MetricGeneratorTypeSimulation MetricGeneratorType = "simulation"
)

const (
	MetricNamePortfolioValue  = "portfolio_value"
	MetricNameTrade           = "trade"
	MetricNameRegulationEvent = "regulation_event"
	MetricNameSnapshot        = "snapshot"
	MetricNameAuditEvent      = "audit_event"
)

// metric value is the JSON encoding of one of the structs below
type Metric struct {
	BaseModel
	MetricGeneratorId   string              `gorm:"not null;index"`
	MetricGeneratorName string              `gorm:"not null;index"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index"`
	MetricTime          time.Time           `gorm:"not null;index"`
	MetricName          string              `gorm:"not null;index"`
	MetricValue         []byte              `gorm:"not null;type:json"`
}

// PortfolioStepMetrics is emitted once per agent per step.
type PortfolioStepMetrics struct {
	SimulationId   string     `json:"simulation_id"`
	AgentName      string     `json:"agent_name"`
	Step           int        `json:"step"`
	Timestamp      time.Time  `json:"timestamp"`
	Price          float64    `json:"price"`
	Cash           float64    `json:"cash"`
	HeldQuantity   int        `json:"held_quantity"`
	PortfolioValue float64    `json:"portfolio_value"`
	Reward         float64    `json:"reward"`
	Action         ActionType `json:"action"`
}

func (pm *PortfolioStepMetrics) GetTimestamp() time.Time {
	return pm.Timestamp
}
