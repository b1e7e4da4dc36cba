package tagutil

import (
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TitleCaser = cases.Title(language.English)
var LowerCaser = cases.Lower(language.Und)

// NormalizeTag folds a style, color or season tag so "Business Casual" and
// "business-casual" compare equal.
func NormalizeTag(tag string) string {
	tag = LowerCaser.String(strings.TrimSpace(tag))
	return strings.Join(strings.FieldsFunc(tag, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "-")
}

// NormalizeTags normalizes and de-duplicates tags, keeping first-seen order.
// Blank tags are dropped.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		n := NormalizeTag(tag)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

var Adjs []string = []string{
	"crisp",
	"easy",
	"bold",
	"quiet",
	"sharp",
	"soft",
	"sunny",
	"urban",
	"classic",
	"breezy",
	"cosy",
	"clean",
	"weekend",
	"midnight",
	"golden",
	"fresh",
	"relaxed",
	"polished",
}

var Nouns []string = []string{
	"layers",
	"edit",
	"look",
	"uniform",
	"combo",
	"stroll",
	"errand",
	"getaway",
	"brunch",
	"commute",
	"evening",
	"capsule",
}

// RandomOutfitName returns a display name such as "Crisp Commute".
func RandomOutfitName() string {
	adj := Adjs[rand.Intn(len(Adjs))]
	noun := Nouns[rand.Intn(len(Nouns))]
	return TitleCaser.String(adj + " " + noun)
}
