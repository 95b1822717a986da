package strategies

import (
	"autonomity/src/datamodels"
	"autonomity/src/recipes"
)

// RecipeStrategy runs a user-authored recipe. The recipe is validated once at
// construction and never changes afterwards.
type RecipeStrategy struct {
	baseStrategy
	evaluator *recipes.Evaluator
}

func NewRecipeStrategy(name string, recipe datamodels.Recipe, defaultSize float64) (*RecipeStrategy, error) {
	evaluator, err := recipes.NewEvaluator(recipe, defaultSize)
	if err != nil {
		return nil, err
	}
	return &RecipeStrategy{
		baseStrategy: baseStrategy{
			name:         name,
			strategyType: datamodels.StrategyRecipe,
		},
		evaluator: evaluator,
	}, nil
}

func (s *RecipeStrategy) GetRecipe() datamodels.Recipe {
	return s.evaluator.GetRecipe()
}

func (s *RecipeStrategy) Decide(obs datamodels.Observation) (datamodels.Decision, error) {
	return s.evaluator.Decide(obs), nil
}
