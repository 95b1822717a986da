package regulator

import (
	"autonomity/src/datamodels"
)

// Regulator reviews a proposed action without side effects. The returned
// review's decision is always one of APPROVE, WARN or BLOCK.
type Regulator interface {
	GetName() string
	Review(req datamodels.ReviewRequest) datamodels.Review
}

func RegulatorFromConfig(config *datamodels.RegulatorConfig) (Regulator, error) {
	if config == nil {
		defaults := datamodels.DefaultRegulatorConfig()
		config = &defaults
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	regulator, err := NewComplianceRegulator().
		WithRule(NewVolatilityHaltRule(config.HaltVolatility)).
		WithRule(NewNoNakedShortRule()).
		WithRule(NewCashSufficiencyRule()).
		WithRule(NewMaxOrderNotionalRule(config.MaxOrderPct)).
		WithRule(NewPositionConcentrationRule(config.MaxPositionPct)).
		Build()
	if err != nil {
		return nil, err
	}
	return regulator, nil
}
