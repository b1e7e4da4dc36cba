package outfits

import (
	"context"

	"wardrobeapi/tagutil"
)

type AgeCategory string

const (
	AgeTeen       AgeCategory = "teen"
	AgeYoungAdult AgeCategory = "young-adult"
	AgeAdult      AgeCategory = "adult"
	AgeMature     AgeCategory = "mature"
	AgeSenior     AgeCategory = "senior"
)

// AgeCategoryFor buckets an age in years. Non-positive ages have no category.
func AgeCategoryFor(age int) AgeCategory {
	switch {
	case age <= 0:
		return ""
	case age < 20:
		return AgeTeen
	case age < 30:
		return AgeYoungAdult
	case age < 45:
		return AgeAdult
	case age < 60:
		return AgeMature
	}
	return AgeSenior
}

// Tip is a piece of styling advice for one position. Empty filter lists
// match everyone.
type Tip struct {
	ID            string        `json:"id"`
	Position      Position      `json:"position"`
	Styles        []string      `json:"styles"`
	AgeCategories []AgeCategory `json:"age_categories,omitempty"`
	Genders       []string      `json:"genders,omitempty"`
	Seasons       []string      `json:"seasons,omitempty"`
	Advice        string        `json:"advice"`
}

type TipQuery struct {
	AgeCategory AgeCategory
	Gender      string
	Styles      []string
	Seasons     []string
}

type TipSource interface {
	Tips(ctx context.Context, query TipQuery) ([]Tip, error)
}

const maxTips = 5

// StaticTips serves tips from a fixed list.
type StaticTips []Tip

func (s StaticTips) Tips(_ context.Context, query TipQuery) ([]Tip, error) {
	styles := tagutil.NormalizeTags(query.Styles)
	seasons := tagutil.NormalizeTags(query.Seasons)
	gender := tagutil.NormalizeTag(query.Gender)

	out := []Tip{}
	for _, tip := range s {
		if len(tip.AgeCategories) > 0 && !containsAge(tip.AgeCategories, query.AgeCategory) {
			continue
		}
		if len(tip.Genders) > 0 && gender != "" && !containsTag(tip.Genders, gender) {
			continue
		}
		if len(tip.Seasons) > 0 && len(seasons) > 0 && !intersects(tip.Seasons, seasons) {
			continue
		}
		if len(styles) > 0 && !anyStyleCompatible(tip.Styles, styles) {
			continue
		}
		out = append(out, tip)
		if len(out) == maxTips {
			break
		}
	}
	return out, nil
}

func containsAge(categories []AgeCategory, category AgeCategory) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

var DefaultTips = StaticTips{
	{
		ID:            "teen-street-tops",
		Position:      PositionTop,
		Styles:        []string{"streetwear", "casual", "sporty"},
		AgeCategories: []AgeCategory{AgeTeen},
		Advice:        "Graphic tees and hoodies keep street looks relaxed.",
	},
	{
		ID:            "young-urban-outer",
		Position:      PositionOuter,
		Styles:        []string{"streetwear", "urban", "edgy"},
		AgeCategories: []AgeCategory{AgeTeen, AgeYoungAdult},
		Advice:        "A bomber or denim jacket finishes an urban outfit.",
	},
	{
		ID:            "clean-sneakers",
		Position:      PositionShoes,
		Styles:        []string{"smart-casual", "minimalist", "casual"},
		AgeCategories: []AgeCategory{AgeYoungAdult, AgeAdult},
		Advice:        "Clean leather sneakers bridge casual and smart.",
	},
	{
		ID:            "structured-tops",
		Position:      PositionTop,
		Styles:        []string{"business", "business-casual", "classic"},
		AgeCategories: []AgeCategory{AgeAdult, AgeMature},
		Advice:        "Structured shirts and blazers read polished at work.",
	},
	{
		ID:            "comfortable-classics",
		Position:      PositionShoes,
		Styles:        []string{"classic", "elegant"},
		AgeCategories: []AgeCategory{AgeMature, AgeSenior},
		Advice:        "Loafers and low block heels stay elegant and comfortable.",
	},
	{
		ID:            "tailored-coat",
		Position:      PositionOuter,
		Styles:        []string{"classic", "formal", "elegant"},
		AgeCategories: []AgeCategory{AgeMature, AgeSenior},
		Advice:        "A tailored wool coat lifts any outfit.",
	},
	{
		ID:       "one-statement-accessory",
		Position: PositionAccessory,
		Styles:   []string{"minimalist", "classic", "scandinavian"},
		Advice:   "Keep it to one watch or a simple belt.",
	},
	{
		ID:       "knit-layer",
		Position: PositionLayer,
		Styles:   []string{"scandinavian", "minimalist", "preppy"},
		Seasons:  []string{"autumn", "winter"},
		Advice:   "A fine-knit cardigan adds warmth without bulk.",
	},
	{
		ID:       "summer-accessories",
		Position: PositionAccessory,
		Styles:   []string{"casual", "bohemian"},
		Seasons:  []string{"summer"},
		Advice:   "Sunglasses and a straw hat suit sunny days.",
	},
	{
		ID:       "winter-outer",
		Position: PositionOuter,
		Styles:   SeasonalStyles("winter"),
		Seasons:  []string{"winter"},
		Advice:   "Pick a long coat that covers your layers.",
	},
}

// tipsFor returns the tips addressing position.
func tipsFor(tips []Tip, position Position) []Tip {
	var out []Tip
	for _, tip := range tips {
		if tip.Position == position {
			out = append(out, tip)
		}
	}
	return out
}

// applyTips keeps the candidates matching a tip's styles. Tips only narrow the
// choice: when none apply, or none of the candidates match, every candidate
// stays eligible.
func applyTips(candidates []poolItem, tips []Tip) []poolItem {
	if len(tips) == 0 {
		return candidates
	}
	var matched []poolItem
	for _, c := range candidates {
		for _, tip := range tips {
			if anyStyleCompatible(c.Styles, tip.Styles) {
				matched = append(matched, c)
				break
			}
		}
	}
	if len(matched) == 0 {
		return candidates
	}
	return matched
}
