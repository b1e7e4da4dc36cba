package outfits

import "wardrobeapi/tagutil"

var styleCompatibility = map[string][]string{
	"casual":          {"smart-casual", "streetwear", "sporty", "athleisure", "bohemian", "minimalist", "preppy"},
	"smart-casual":    {"casual", "business-casual", "classic", "preppy", "minimalist"},
	"business-casual": {"smart-casual", "classic", "minimalist", "business", "formal"},
	"business":        {"business-casual", "formal", "classic"},
	"formal":          {"business", "classic", "elegant", "business-casual"},
	"classic":         {"formal", "business", "minimalist", "preppy", "elegant", "smart-casual"},
	"elegant":         {"formal", "classic", "romantic", "minimalist"},
	"minimalist":      {"classic", "scandinavian", "business-casual", "casual", "elegant"},
	"scandinavian":    {"minimalist", "casual", "classic"},
	"streetwear":      {"edgy", "athleisure", "urban", "casual", "sporty"},
	"urban":           {"streetwear", "edgy", "casual"},
	"edgy":            {"streetwear", "urban", "rock", "grunge"},
	"rock":            {"edgy", "grunge", "vintage"},
	"grunge":          {"edgy", "rock", "vintage"},
	"athleisure":      {"sporty", "streetwear", "casual"},
	"sporty":          {"athleisure", "casual", "streetwear"},
	"bohemian":        {"vintage", "romantic", "casual"},
	"vintage":         {"bohemian", "retro", "classic", "rock"},
	"retro":           {"vintage", "preppy"},
	"romantic":        {"elegant", "bohemian", "feminine"},
	"feminine":        {"romantic", "elegant"},
	"preppy":          {"classic", "smart-casual", "casual", "retro"},
}

var colorCompatibility = map[string][]string{
	"black":    {"white", "gray", "navy", "beige", "burgundy", "red", "pink", "camel"},
	"white":    {"black", "navy", "blue", "gray", "beige", "denim", "red", "green", "brown"},
	"gray":     {"black", "white", "navy", "pink", "burgundy", "blue", "yellow", "beige"},
	"navy":     {"white", "beige", "gray", "camel", "red", "pink", "denim"},
	"blue":     {"white", "beige", "gray", "brown", "camel", "denim", "yellow"},
	"denim":    {"white", "black", "gray", "beige", "red", "navy", "camel"},
	"beige":    {"white", "navy", "brown", "olive", "black", "blue", "burgundy", "gray"},
	"camel":    {"white", "navy", "black", "denim", "cream"},
	"cream":    {"camel", "brown", "navy", "olive"},
	"brown":    {"beige", "cream", "white", "olive", "blue"},
	"olive":    {"beige", "white", "brown", "cream", "black"},
	"green":    {"white", "beige", "navy", "brown"},
	"burgundy": {"gray", "beige", "navy", "black", "white"},
	"red":      {"black", "white", "navy", "denim", "gray"},
	"pink":     {"gray", "white", "navy", "black", "denim"},
	"yellow":   {"gray", "navy", "white", "denim"},
}

var seasonalStyles = map[string][]string{
	"spring": {"smart-casual", "romantic", "preppy", "bohemian", "casual"},
	"summer": {"casual", "bohemian", "sporty", "athleisure", "minimalist"},
	"autumn": {"classic", "vintage", "grunge", "preppy", "smart-casual"},
	"winter": {"classic", "formal", "minimalist", "scandinavian", "elegant"},
}

var Seasons = []string{"spring", "summer", "autumn", "winter", "all-season"}

func compatibleIn(table map[string][]string, a, b string) bool {
	a, b = tagutil.NormalizeTag(a), tagutil.NormalizeTag(b)
	if a == b {
		return true
	}
	return containsTag(table[a], b) || containsTag(table[b], a)
}

// StylesCompatible reports whether two style tags go together, in either
// direction of the style table.
func StylesCompatible(a, b string) bool {
	return compatibleIn(styleCompatibility, a, b)
}

// ColorsCompatible reports whether two colors are linked in the color table,
// in either direction.
func ColorsCompatible(a, b string) bool {
	return compatibleIn(colorCompatibility, a, b)
}

// SeasonalStyles lists the styles that suit a season.
func SeasonalStyles(season string) []string {
	return seasonalStyles[tagutil.NormalizeTag(season)]
}

func IsSeason(value string) bool {
	return containsTag(Seasons, tagutil.NormalizeTag(value))
}

func anyStyleCompatible(candidate, outfit []string) bool {
	for _, c := range candidate {
		for _, o := range outfit {
			if StylesCompatible(c, o) {
				return true
			}
		}
	}
	return false
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if containsTag(b, x) {
			return true
		}
	}
	return false
}
