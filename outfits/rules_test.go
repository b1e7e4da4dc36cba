package outfits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibilityIsSymmetric(t *testing.T) {
	for style, partners := range styleCompatibility {
		for _, partner := range partners {
			assert.True(t, StylesCompatible(partner, style), "%s/%s", partner, style)
		}
	}
	for color, partners := range colorCompatibility {
		for _, partner := range partners {
			assert.True(t, ColorsCompatible(partner, color), "%s/%s", partner, color)
		}
	}
}

func TestCompatibility(t *testing.T) {
	assert.True(t, StylesCompatible("Minimalist", "scandinavian"))
	assert.True(t, StylesCompatible("edgy", "edgy"))
	assert.False(t, StylesCompatible("formal", "sporty"))

	assert.True(t, ColorsCompatible("white", "blue"))
	assert.True(t, ColorsCompatible("gray", "beige"))
	assert.False(t, ColorsCompatible("red", "pink"))
	assert.Contains(t, SeasonalStyles("Winter"), "formal")
	assert.True(t, IsSeason("All Season"))
	assert.False(t, IsSeason("monsoon"))
}

func TestColorsCompatibleFollowsTable(t *testing.T) {
	neutrals := []string{"black", "white", "gray", "beige"}
	for _, a := range neutrals {
		for _, b := range neutrals {
			if a == b {
				continue
			}
			linked := containsTag(colorCompatibility[a], b) || containsTag(colorCompatibility[b], a)
			assert.True(t, linked, "%s/%s missing from the color table", a, b)
		}
	}

	assert.False(t, ColorsCompatible("beige", "pink"))
	assert.False(t, ColorsCompatible("Cream", "gray"))
	assert.True(t, ColorsCompatible("Gray", "BEIGE"))
}

func TestPositionFor(t *testing.T) {
	cases := []struct {
		item WardrobeItem
		want Position
		ok   bool
	}{
		{WardrobeItem{SubCategory: "Blazer"}, PositionTop, true},
		{WardrobeItem{SubCategory: "T-Shirt"}, PositionTop, true},
		{WardrobeItem{SubCategory: "trench"}, PositionOuter, true},
		{WardrobeItem{SubCategory: "cardigan"}, PositionLayer, true},
		{WardrobeItem{SubCategory: "unknown", Category: "shoes"}, PositionShoes, true},
		{WardrobeItem{Category: "Accessories"}, PositionAccessory, true},
		{WardrobeItem{Category: "jeans"}, PositionBottom, true},
		{WardrobeItem{Category: "furniture"}, "", false},
	}
	for _, c := range cases {
		got, ok := PositionFor(c.item)
		assert.Equal(t, c.ok, ok, "%+v", c.item)
		assert.Equal(t, c.want, got, "%+v", c.item)
	}
}

func TestDetermineNextPosition(t *testing.T) {
	draft := &OutfitDraft{}
	assert.Equal(t, PositionOuter, determineNextPosition(draft))

	draft.Clothes = append(draft.Clothes, OutfitSlot{ItemID: "coat", Position: PositionOuter})
	assert.Equal(t, PositionAccessory, determineNextPosition(draft))

	for _, id := range []string{"a", "b", "c"} {
		draft.Clothes = append(draft.Clothes, OutfitSlot{ItemID: id, Position: PositionAccessory})
	}
	assert.Equal(t, PositionLayer, determineNextPosition(draft))

	draft.Clothes = append(draft.Clothes, OutfitSlot{ItemID: "vest", Position: PositionLayer})
	assert.Equal(t, Position(""), determineNextPosition(draft))
}

func TestAgeCategoryFor(t *testing.T) {
	assert.Equal(t, AgeCategory(""), AgeCategoryFor(0))
	assert.Equal(t, AgeTeen, AgeCategoryFor(16))
	assert.Equal(t, AgeYoungAdult, AgeCategoryFor(20))
	assert.Equal(t, AgeAdult, AgeCategoryFor(44))
	assert.Equal(t, AgeMature, AgeCategoryFor(45))
	assert.Equal(t, AgeSenior, AgeCategoryFor(72))
}

func TestStaticTipsFiltering(t *testing.T) {
	tips, err := DefaultTips.Tips(context.Background(), TipQuery{
		AgeCategory: AgeTeen,
		Styles:      []string{"Streetwear"},
		Seasons:     []string{"summer"},
	})
	require.NoError(t, err)

	ids := []string{}
	for _, tip := range tips {
		ids = append(ids, tip.ID)
	}
	assert.Contains(t, ids, "teen-street-tops")
	assert.Contains(t, ids, "young-urban-outer")
	assert.NotContains(t, ids, "structured-tops")
	assert.NotContains(t, ids, "knit-layer")
	assert.LessOrEqual(t, len(tips), maxTips)
}
