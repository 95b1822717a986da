package datamodels

type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "APPROVE"
	ReviewWarn    ReviewDecision = "WARN"
	ReviewBlock   ReviewDecision = "BLOCK"
)

// Review is the regulator's verdict on a proposed action. AdjustedAction is the
// action that may be applied: equal to the proposal on APPROVE, reduced on WARN
// and a zero-quantity HOLD on BLOCK.
type Review struct {
	Decision       ReviewDecision `json:"decision"`
	Reason         string         `json:"reason"`
	RuleName       string         `json:"rule_name"`
	AdjustedAction Action         `json:"adjusted_action"`
}

func (r *Review) Executable() bool {
	return r.Decision == ReviewApprove || r.Decision == ReviewWarn
}

func (r *Review) IsIntervention() bool {
	return r.Decision == ReviewWarn || r.Decision == ReviewBlock
}

// ReviewRequest carries the context the regulator needs; it never mutates it.
type ReviewRequest struct {
	AgentName string     `json:"agent_name"`
	Step      int        `json:"step"`
	Action    Action     `json:"action"`
	State     AgentState `json:"state"`
	Bar       Bar        `json:"bar"`
}
