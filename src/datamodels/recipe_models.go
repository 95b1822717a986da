package datamodels

type RecipeMode string

const (
	RecipeModeBasic    RecipeMode = "basic"
	RecipeModeAdvanced RecipeMode = "advanced"
)

type EntryRule string

const (
	EntrySMACrossover EntryRule = "sma_crossover"
	EntryBBOversold   EntryRule = "bb_oversold"
	EntryPriceVsSMA   EntryRule = "price_vs_sma"
)

type ExitRule string

const (
	ExitSMADeathCross ExitRule = "sma_death_cross"
	ExitBBOverbought  ExitRule = "bb_overbought"
	ExitStopLoss      ExitRule = "stop_loss"
)

// Recipe is a user-authored strategy. Only the section matching Mode is read.
type Recipe struct {
	Mode     RecipeMode      `json:"mode" mapstructure:"mode"`
	Basic    *BasicRecipe    `json:"basic,omitempty" mapstructure:"basic"`
	Advanced *AdvancedRecipe `json:"advanced,omitempty" mapstructure:"advanced"`
}

type BasicRecipe struct {
	EntryRule       EntryRule `json:"entry_rule" mapstructure:"entry_rule"`
	ExitRule        ExitRule  `json:"exit_rule" mapstructure:"exit_rule"`
	PositionSizePct float64   `json:"position_size_pct" mapstructure:"position_size_pct"`
	StopLossPct     float64   `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`
}

type AdvancedRecipe struct {
	Rules []RuleGroup `json:"rules" mapstructure:"rules"`
}

// RuleGroup fires Action when its conditions hold under Logic.
type RuleGroup struct {
	Conditions []Condition `json:"conditions" mapstructure:"conditions"`
	Logic      string      `json:"logic" mapstructure:"logic"`
	Action     string      `json:"action" mapstructure:"action"`
	SizePct    float64     `json:"size_pct" mapstructure:"size_pct"`
}

// Condition compares a named indicator against a literal. Value is kept as
// decoded so malformed literals can be rejected at evaluation time.
type Condition struct {
	Indicator string `json:"indicator" mapstructure:"indicator"`
	Op        string `json:"op" mapstructure:"op"`
	Value     any    `json:"value" mapstructure:"value"`
}
