package datamodels

import "time"

// RegulationRuleName is recorded on every regulation log entry.
const RegulationRuleName = "compliance_review"

// TradeLogEntry records one agent's turn in one step, whatever the verdict.
type TradeLogEntry struct {
	Id                string         `json:"id" gorm:"primarykey;type:varchar(36)"`
	SimulationId      string         `json:"simulation_id" gorm:"not null;index"`
	Timestamp         time.Time      `json:"timestamp" gorm:"not null;index"`
	Step              int            `json:"step" gorm:"not null;index"`
	AgentName         string         `json:"agent_name" gorm:"not null;index"`
	Action            ActionType     `json:"action" gorm:"not null"`
	Ticker            string         `json:"ticker" gorm:"not null"`
	Price             float64        `json:"price" gorm:"not null"`
	Quantity          int            `json:"quantity" gorm:"not null"`
	PortfolioValue    float64        `json:"portfolio_value" gorm:"not null"`
	AgentReason       string         `json:"agent_reason"`
	RegulatorDecision ReviewDecision `json:"regulator_decision" gorm:"not null;index"`
	RegulatorReason   string         `json:"regulator_reason"`
}

func (e *TradeLogEntry) GetTimestamp() time.Time {
	return e.Timestamp
}

// RegulationLogEntry records a WARN or BLOCK intervention.
type RegulationLogEntry struct {
	Id           string         `json:"id" gorm:"primarykey;type:varchar(36)"`
	SimulationId string         `json:"simulation_id" gorm:"not null;index"`
	Timestamp    time.Time      `json:"timestamp" gorm:"not null;index"`
	Step         int            `json:"step" gorm:"not null;index"`
	AgentName    string         `json:"agent_name" gorm:"not null;index"`
	RuleName     string         `json:"rule_name" gorm:"not null"`
	Decision     ReviewDecision `json:"decision" gorm:"not null;index"`
	Explanation  string         `json:"explanation"`
}

func (e *RegulationLogEntry) GetTimestamp() time.Time {
	return e.Timestamp
}
