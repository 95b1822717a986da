package regulator

import (
	"log/slog"
	"strings"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

const (
	approvedReason    = "Action complies with all rules"
	malformedRuleName = "malformed_action"
)

// ComplianceRegulator runs its rules in order. The first block wins; warnings
// accumulate and each later rule sees the reduced quantity.
type ComplianceRegulator struct {
	rules []Rule
}

type complianceRegulatorBuilder struct {
	rules []Rule
}

func NewComplianceRegulator() *complianceRegulatorBuilder {
	return &complianceRegulatorBuilder{}
}

func (b *complianceRegulatorBuilder) WithRule(rule Rule) *complianceRegulatorBuilder {
	b.rules = append(b.rules, rule)
	return b
}

func (b *complianceRegulatorBuilder) Build() (*ComplianceRegulator, error) {
	names := map[string]bool{}
	for _, rule := range b.rules {
		if names[rule.GetName()] {
			return nil, errors.Newf("duplicate regulator rule %s", rule.GetName())
		}
		names[rule.GetName()] = true
	}
	return &ComplianceRegulator{rules: b.rules}, nil
}

func (r *ComplianceRegulator) GetName() string {
	return "ComplianceRegulator"
}

func (r *ComplianceRegulator) GetRuleNames() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.GetName()
	}
	return names
}

func (r *ComplianceRegulator) Review(req datamodels.ReviewRequest) datamodels.Review {
	proposed := req.Action
	if !proposed.IsValid() {
		return datamodels.Review{
			Decision:       datamodels.ReviewBlock,
			Reason:         "Malformed action " + proposed.String(),
			RuleName:       malformedRuleName,
			AdjustedAction: datamodels.HoldAction(proposed.Ticker),
		}
	}
	if proposed.IsHold() {
		return approve(proposed)
	}

	current := proposed
	warnRule := ""
	warnings := []string{}
	for _, rule := range r.rules {
		result := rule.Evaluate(&req, current)
		switch result.Verdict {
		case VerdictBlock:
			slog.Debug("Action blocked", "agent", req.AgentName, "step", req.Step, "rule", rule.GetName(), "action", proposed.String())
			return datamodels.Review{
				Decision:       datamodels.ReviewBlock,
				Reason:         result.Reason,
				RuleName:       rule.GetName(),
				AdjustedAction: datamodels.HoldAction(proposed.Ticker),
			}
		case VerdictWarn:
			if warnRule == "" {
				warnRule = rule.GetName()
			}
			warnings = append(warnings, result.Reason)
			current.Quantity = result.Quantity
		}
	}

	if len(warnings) == 0 {
		return approve(proposed)
	}
	slog.Debug("Action reduced", "agent", req.AgentName, "step", req.Step, "rule", warnRule, "from", proposed.Quantity, "to", current.Quantity)
	return datamodels.Review{
		Decision:       datamodels.ReviewWarn,
		Reason:         strings.Join(warnings, "; "),
		RuleName:       warnRule,
		AdjustedAction: current,
	}
}

func approve(action datamodels.Action) datamodels.Review {
	return datamodels.Review{
		Decision:       datamodels.ReviewApprove,
		Reason:         approvedReason,
		AdjustedAction: action,
	}
}
