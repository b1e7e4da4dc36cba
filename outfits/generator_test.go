package outfits

import (
	"context"
	"fmt"
	"testing"

	"wardrobeapi/regulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	records []regulator.ErrorRecord
}

func (r *recordingReporter) LogError(record regulator.ErrorRecord) string {
	r.records = append(r.records, record)
	return fmt.Sprintf("err-%d", len(r.records))
}

func (r *recordingReporter) codes() []string {
	codes := []string{}
	for _, rec := range r.records {
		codes = append(codes, rec.Code)
	}
	return codes
}

func (r *recordingReporter) count(code string) int {
	n := 0
	for _, rec := range r.records {
		if rec.Code == code {
			n++
		}
	}
	return n
}

type panickingTips struct{}

func (panickingTips) Tips(context.Context, TipQuery) ([]Tip, error) {
	panic("tip store corrupted")
}

type failingTips struct{}

func (failingTips) Tips(context.Context, TipQuery) ([]Tip, error) {
	return nil, fmt.Errorf("cache unavailable")
}

func item(id, sub string, styles, colors, seasons []string) WardrobeItem {
	return WardrobeItem{ID: id, SubCategory: sub, Styles: styles, Colors: colors, Seasons: seasons}
}

func fullWardrobe() []WardrobeItem {
	casual := []string{"casual"}
	all := []string{"summer", "spring"}
	return []WardrobeItem{
		item("tee", "t-shirt", casual, []string{"white"}, all),
		item("jeans", "jeans", casual, []string{"blue"}, all),
		item("sneakers", "sneakers", casual, []string{"white"}, all),
		item("jacket", "jacket", casual, []string{"navy"}, all),
		item("cardigan", "cardigan", casual, []string{"beige"}, all),
		item("cap", "cap", casual, []string{"white"}, all),
		item("belt", "belt", casual, []string{"brown"}, all),
		item("watch", "watch", casual, []string{"black"}, all),
		item("bag", "bag", casual, []string{"beige"}, all),
		item("scarf", "scarf", casual, []string{"gray"}, all),
		item("shirt", "shirt", casual, []string{"white"}, all),
	}
}

func TestScenarioCompleteCasualOutfit(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	summer := []string{"summer"}
	items := []WardrobeItem{
		{ID: "white-tshirt", Category: "top", Styles: []string{"casual"}, Colors: []string{"white"}, Seasons: summer},
		{ID: "blue-jeans", Category: "bottom", Styles: []string{"casual"}, Colors: []string{"blue"}, Seasons: summer},
		{ID: "white-sneakers", Category: "shoes", Styles: []string{"casual"}, Colors: []string{"white"}, Seasons: summer},
	}

	draft, err := g.GenerateOutfit(items, Params{Season: summer})
	require.NoError(t, err)

	assert.Equal(t, []OutfitSlot{
		{ItemID: "white-tshirt", Position: PositionTop},
		{ItemID: "blue-jeans", Position: PositionBottom},
		{ItemID: "white-sneakers", Position: PositionShoes},
	}, draft.Clothes)
	assert.Empty(t, reporter.records)
	assert.True(t, draft.AIGenerated)
	assert.True(t, draft.Complete())
	assert.Equal(t, []string{"casual"}, draft.Style)
}

func TestScenarioOnlyTop(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	items := []WardrobeItem{{ID: "formal-blazer", Category: "top", SubCategory: "blazer", Styles: []string{"formal"}}}

	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)

	require.Len(t, draft.Clothes, 1)
	assert.Equal(t, PositionTop, draft.Clothes[0].Position)
	assert.Equal(t, []string{CodeNoSuitableItems, CodeNoSuitableItems, CodeIncompleteOutfit}, reporter.codes())
	assert.Equal(t, regulator.SeverityHigh, reporter.records[2].Severity)
	assert.Equal(t, []Position{PositionBottom, PositionShoes}, draft.MissingRequired())
}

func TestEmptyPoolReturnsEmptyDraft(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)

	draft, err := g.GenerateOutfit(nil, Params{UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Empty(t, draft.Clothes)
	assert.Equal(t, "u1", draft.UserID)
	assert.Equal(t, 1, reporter.count(CodeNoSuitableItems))
	assert.Len(t, reporter.records, 1)
}

func TestOutfitRespectsCaps(t *testing.T) {
	g := NewGenerator(&recordingReporter{})

	draft, err := g.GenerateOutfit(fullWardrobe(), Params{MaxItems: 20})
	require.NoError(t, err)

	positions := map[Position]int{}
	ids := map[string]bool{}
	for _, slot := range draft.Clothes {
		positions[slot.Position]++
		assert.False(t, ids[slot.ItemID], "duplicate item %s", slot.ItemID)
		ids[slot.ItemID] = true
	}
	assert.Equal(t, 1, positions[PositionTop])
	assert.Equal(t, 1, positions[PositionBottom])
	assert.Equal(t, 1, positions[PositionShoes])
	assert.Equal(t, 1, positions[PositionOuter])
	assert.Equal(t, 3, positions[PositionAccessory])
	assert.Equal(t, 1, positions[PositionLayer])
	assert.Len(t, draft.Clothes, 8)
}

func TestOutfitNeverExceedsMaxItems(t *testing.T) {
	g := NewGenerator(nil)
	for _, max := range []int{0, 1, 2, 4, 6} {
		draft, err := g.GenerateOutfit(fullWardrobe(), Params{MaxItems: max})
		require.NoError(t, err)
		limit := max
		if limit == 0 {
			limit = DefaultMaxItems
		}
		assert.LessOrEqual(t, len(draft.Clothes), limit, "max items %d", max)
	}
}

func TestDuplicateIDsAreNotReused(t *testing.T) {
	g := NewGenerator(nil)
	items := append(fullWardrobe(), item("tee", "t-shirt", []string{"casual"}, []string{"white"}, nil))

	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, slot := range draft.Clothes {
		require.False(t, seen[slot.ItemID])
		seen[slot.ItemID] = true
	}
}

func TestExcludedItemsNeverAppear(t *testing.T) {
	g := NewGenerator(nil)
	draft, err := g.GenerateOutfit(fullWardrobe(), Params{ExcludeItems: []string{"tee", "jacket", "cap"}})
	require.NoError(t, err)
	for _, slot := range draft.Clothes {
		assert.NotContains(t, []string{"tee", "jacket", "cap"}, slot.ItemID)
	}
	assert.Contains(t, draft.Clothes, OutfitSlot{ItemID: "shirt", Position: PositionTop})
}

func TestHardFiltersDropItems(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	items := []WardrobeItem{
		{ID: "", Category: "top"},
		{ID: "coat", SubCategory: "parka", Seasons: []string{"winter"}, Weather: []string{"snow"}},
		{ID: "shorts", SubCategory: "shorts", Seasons: []string{"summer"}, Weather: []string{"sunny"}},
	}

	draft, err := g.GenerateOutfit(items, Params{Season: []string{"winter"}, Weather: []string{"rain"}})
	require.NoError(t, err)
	assert.Empty(t, draft.Clothes)
	assert.Equal(t, []string{CodeNoSuitableItems}, reporter.codes())
}

func TestAllSeasonItemsPassSeasonFilter(t *testing.T) {
	g := NewGenerator(nil)
	items := []WardrobeItem{item("tee", "t-shirt", nil, nil, []string{"All Season"})}
	draft, err := g.GenerateOutfit(items, Params{Season: []string{"winter"}})
	require.NoError(t, err)
	assert.Len(t, draft.Clothes, 1)
}

func TestIncompatibleStylesAreSkipped(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	items := []WardrobeItem{
		item("gown-top", "blouse", []string{"formal"}, []string{"black"}, nil),
		item("track-pants", "joggers", []string{"sporty"}, []string{"gray"}, nil),
		item("heels", "heels", []string{"elegant"}, []string{"black"}, nil),
	}

	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Equal(t, []OutfitSlot{
		{ItemID: "gown-top", Position: PositionTop},
		{ItemID: "heels", Position: PositionShoes},
	}, draft.Clothes)
	assert.Equal(t, []string{CodeNoSuitableItems, CodeIncompleteOutfit, CodeStyleMismatch}, reporter.codes())
}

func TestScoringPrefersMatchingStylesAndColors(t *testing.T) {
	g := NewGenerator(nil)
	items := []WardrobeItem{
		item("red-top", "shirt", []string{"casual"}, []string{"red"}, []string{"autumn"}),
		item("navy-top", "shirt", []string{"classic", "minimalist"}, []string{"navy"}, []string{"autumn"}),
	}

	draft, err := g.GenerateOutfit(items, Params{
		PreferredStyles: []string{"Minimalist"},
		PreferredColors: []string{"white"},
		Season:          []string{"autumn"},
	})
	require.NoError(t, err)
	require.Len(t, draft.Clothes, 1)
	assert.Equal(t, "navy-top", draft.Clothes[0].ItemID)
}

func TestScoringTiesKeepFirstItem(t *testing.T) {
	g := NewGenerator(nil)
	items := []WardrobeItem{
		item("first", "shirt", []string{"casual"}, []string{"white"}, nil),
		item("second", "shirt", []string{"casual"}, []string{"white"}, nil),
	}
	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Equal(t, "first", draft.Clothes[0].ItemID)
}

func TestColorMismatchIsReported(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	items := []WardrobeItem{
		item("top", "shirt", []string{"casual"}, []string{"red"}, nil),
		item("bottom", "skirt", []string{"casual"}, []string{"pink"}, nil),
		item("shoes", "sandals", []string{"casual"}, []string{"white"}, nil),
	}
	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Len(t, draft.Clothes, 3)
	assert.Equal(t, []string{CodeColorMismatch}, reporter.codes())
	assert.Equal(t, regulator.SeverityLow, reporter.records[0].Severity)
}

func TestUntaggedItemsDoNotBreakStyleCoherence(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter)
	items := []WardrobeItem{
		item("tee", "t-shirt", []string{"casual"}, []string{"white"}, nil),
		item("jeans", "jeans", nil, []string{"blue"}, nil),
		item("sneakers", "sneakers", []string{"casual"}, []string{"white"}, nil),
	}
	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Len(t, draft.Clothes, 3)
	assert.Empty(t, reporter.codes())

	reporter = &recordingReporter{}
	g = NewGenerator(reporter)
	items = []WardrobeItem{
		item("tee", "t-shirt", nil, nil, nil),
		item("jeans", "jeans", nil, nil, nil),
		item("sneakers", "sneakers", nil, nil, nil),
	}
	draft, err = g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Len(t, draft.Clothes, 3)
	assert.Empty(t, reporter.codes())
}

func TestTipsNarrowCandidates(t *testing.T) {
	g := NewGenerator(nil, WithTips(StaticTips{
		{ID: "street", Position: PositionTop, Styles: []string{"streetwear"}},
	}))
	items := []WardrobeItem{
		item("oxford", "shirt", []string{"preppy"}, nil, nil),
		item("hoodie", "hoodie", []string{"streetwear"}, nil, nil),
	}
	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Equal(t, "hoodie", draft.Clothes[0].ItemID)
}

func TestTipsNeverBlockTheOnlyCandidate(t *testing.T) {
	g := NewGenerator(nil, WithTips(StaticTips{
		{ID: "street", Position: PositionTop, Styles: []string{"streetwear"}},
	}))
	items := []WardrobeItem{item("oxford", "shirt", []string{"formal"}, nil, nil)}
	draft, err := g.GenerateOutfit(items, Params{})
	require.NoError(t, err)
	assert.Equal(t, "oxford", draft.Clothes[0].ItemID)
}

func TestTipSourceErrorIsIgnored(t *testing.T) {
	g := NewGenerator(nil, WithTips(failingTips{}))
	draft, err := g.GenerateOutfit(fullWardrobe(), Params{})
	require.NoError(t, err)
	assert.True(t, draft.Complete())
}

func TestPanicBecomesGenerationFailed(t *testing.T) {
	reporter := &recordingReporter{}
	g := NewGenerator(reporter, WithTips(panickingTips{}))

	draft, err := g.GenerateOutfit(fullWardrobe(), Params{UserID: "u1"})
	assert.Nil(t, draft)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, []string{CodeGenerationFailed}, reporter.codes())
	assert.Equal(t, regulator.SeverityHigh, reporter.records[0].Severity)
}

func TestGeneratorFeedsRegulator(t *testing.T) {
	reg := regulator.New()
	g := NewGenerator(reg)

	_, err := g.GenerateOutfit(nil, Params{})
	require.NoError(t, err)

	recent := reg.GetRecentErrors(regulator.RecentFilter{Code: CodeNoSuitableItems})
	require.Len(t, recent, 1)
	assert.Equal(t, "OutfitGenerationError", recent[0].Name)
	assert.Equal(t, regulator.SourceServer, recent[0].Source)
}
