package model

// TargetType distinguishes food groups the diet asks you to reach from
// those it asks you to stay under.
type TargetType string

const (
	// TargetMin marks a weekly goal: servings at or above the target.
	TargetMin TargetType = "min"
	// TargetMax marks a weekly limit: servings at or below the target.
	TargetMax TargetType = "max"
)

// Target is the weekly serving target for a single food group.
type Target struct {
	Servings int        `json:"servings"`
	Type     TargetType `json:"type"`
}

// FoodGroup describes one tracked MIND-diet food group.
type FoodGroup struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Target Target `json:"target"`
}

// FoodGroups returns the tracked food groups in display order.
func FoodGroups() []FoodGroup {
	return []FoodGroup{
		{ID: "wholeGrains", Name: "Whole Grains", Target: Target{Servings: 21, Type: TargetMin}},
		{ID: "greenLeafy", Name: "Green Leafy Vegetables", Target: Target{Servings: 6, Type: TargetMin}},
		{ID: "otherVegs", Name: "Other Vegetables", Target: Target{Servings: 7, Type: TargetMin}},
		{ID: "berries", Name: "Berries", Target: Target{Servings: 2, Type: TargetMin}},
		{ID: "nuts", Name: "Nuts", Target: Target{Servings: 5, Type: TargetMin}},
		{ID: "beans", Name: "Beans & Legumes", Target: Target{Servings: 4, Type: TargetMin}},
		{ID: "poultry", Name: "Poultry", Target: Target{Servings: 2, Type: TargetMin}},
		{ID: "fish", Name: "Fish", Target: Target{Servings: 1, Type: TargetMin}},
		{ID: "oliveOil", Name: "Olive Oil", Target: Target{Servings: 7, Type: TargetMin}},
		{ID: "wine", Name: "Wine", Target: Target{Servings: 7, Type: TargetMax}},
		{ID: "redMeat", Name: "Red Meat", Target: Target{Servings: 3, Type: TargetMax}},
		{ID: "butter", Name: "Butter & Margarine", Target: Target{Servings: 5, Type: TargetMax}},
		{ID: "cheese", Name: "Cheese", Target: Target{Servings: 1, Type: TargetMax}},
		{ID: "pastriesSweets", Name: "Pastries & Sweets", Target: Target{Servings: 5, Type: TargetMax}},
		{ID: "friedFastFood", Name: "Fried & Fast Food", Target: Target{Servings: 1, Type: TargetMax}},
	}
}

// DefaultTargets returns the current target per food-group ID. Archive
// records snapshot this map so later target changes never rewrite history.
func DefaultTargets() map[string]Target {
	targets := make(map[string]Target)
	for _, g := range FoodGroups() {
		targets[g.ID] = g.Target
	}
	return targets
}

// IsFoodGroup reports whether id names a tracked food group.
func IsFoodGroup(id string) bool {
	for _, g := range FoodGroups() {
		if g.ID == id {
			return true
		}
	}
	return false
}
