// Package outfits assembles outfits from a wardrobe: it fills the required
// positions (top, bottom, shoes) and then optional ones, choosing the item
// that best matches the styles, colors and seasons already in the outfit.
package outfits

import (
	"context"
	"errors"
	"fmt"

	"wardrobeapi/regulator"
	"wardrobeapi/tagutil"

	"go.uber.org/zap"
)

const DefaultMaxItems = 6

const (
	CodeNoSuitableItems             = "NO_SUITABLE_ITEMS"
	CodeItemSelectionFailed         = "ITEM_SELECTION_FAILED"
	CodeOptionalItemSelectionFailed = "OPTIONAL_ITEM_SELECTION_FAILED"
	CodeIncompleteOutfit            = "INCOMPLETE_OUTFIT"
	CodeStyleMismatch               = "STYLE_MISMATCH"
	CodeColorMismatch               = "COLOR_MISMATCH"
	CodeGenerationFailed            = "GENERATION_FAILED"
	generationErrorName             = "OutfitGenerationError"
)

var ErrGenerationFailed = errors.New("outfit generation failed")

type WardrobeItem struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	SubCategory string   `json:"sub_category"`
	Colors      []string `json:"colors"`
	Styles      []string `json:"styles"`
	Seasons     []string `json:"seasons"`
	Weather     []string `json:"weather"`
}

type Params struct {
	UserID               string
	Age                  int
	AgeCategory          AgeCategory
	BaseStylePreferences []string
	Occasion             []string
	Season               []string
	Weather              []string
	PreferredStyles      []string
	PreferredColors      []string
	ExcludeItems         []string
	Gender               string
	BodyType             string
	Height               int
	MaxItems             int
}

type OutfitSlot struct {
	ItemID   string   `json:"item_id"`
	Position Position `json:"position"`
}

type OutfitDraft struct {
	UserID      string       `json:"user_id"`
	Clothes     []OutfitSlot `json:"clothes"`
	Occasion    []string     `json:"occasion"`
	Season      []string     `json:"season"`
	Weather     []string     `json:"weather"`
	Style       []string     `json:"style"`
	AIGenerated bool         `json:"ai_generated"`

	colors       []string
	mergeSeasons bool
}

func (d *OutfitDraft) count(position Position) int {
	n := 0
	for _, slot := range d.Clothes {
		if slot.Position == position {
			n++
		}
	}
	return n
}

func (d *OutfitDraft) Has(position Position) bool {
	return d.count(position) > 0
}

// MissingRequired lists the required positions the draft has not filled.
func (d *OutfitDraft) MissingRequired() []Position {
	var missing []Position
	for _, p := range RequiredPositions {
		if !d.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

func (d *OutfitDraft) Complete() bool {
	return len(d.MissingRequired()) == 0
}

// ErrorReporter receives failure signals. *regulator.Regulator satisfies it.
type ErrorReporter interface {
	LogError(record regulator.ErrorRecord) string
}

type noopReporter struct{}

func (noopReporter) LogError(regulator.ErrorRecord) string { return "" }

type Option func(*Generator)

func WithTips(tips TipSource) Option {
	return func(g *Generator) {
		g.tips = tips
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Generator is stateless between calls and safe for concurrent use.
type Generator struct {
	reporter ErrorReporter
	tips     TipSource
	logger   *zap.SugaredLogger
}

func NewGenerator(reporter ErrorReporter, opts ...Option) *Generator {
	if reporter == nil {
		reporter = noopReporter{}
	}
	g := &Generator{
		reporter: reporter,
		tips:     DefaultTips,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// poolItem is a wardrobe item with normalized tags and a resolved position.
type poolItem struct {
	WardrobeItem
	position Position
}

// GenerateOutfit builds a best-effort outfit from items. Missing positions and
// mismatches are reported to the ErrorReporter and the partial draft is
// returned; only an unexpected failure yields an error, which wraps
// ErrGenerationFailed.
func (g *Generator) GenerateOutfit(items []WardrobeItem, params Params) (draft *OutfitDraft, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			g.report(CodeGenerationFailed, regulator.SeverityHigh, fmt.Sprintf("outfit generation panicked: %v", rec), map[string]any{
				"user_id": params.UserID,
				"items":   len(items),
			})
			draft = nil
			err = fmt.Errorf("%w: %v", ErrGenerationFailed, rec)
		}
	}()

	maxItems := params.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	draft = newDraft(params)
	log := g.logger.With("user_id", params.UserID)

	pool := filterItems(items, params)
	if len(pool) == 0 {
		g.report(CodeNoSuitableItems, regulator.SeverityMedium, "no wardrobe items left after filtering", map[string]any{
			"user_id": params.UserID,
			"items":   len(items),
			"season":  params.Season,
			"weather": params.Weather,
		})
		return draft, nil
	}

	tips := g.fetchTips(params)
	var chosen []poolItem

	for _, position := range RequiredPositions {
		if len(draft.Clothes) >= maxItems {
			break
		}
		candidates := suitableItems(pool, position, draft, tips)
		if len(candidates) == 0 {
			g.report(CodeNoSuitableItems, regulator.SeverityMedium, fmt.Sprintf("no suitable items for %s", position), map[string]any{
				"user_id":  params.UserID,
				"position": position,
			})
			continue
		}
		best, ok := selectBestMatch(candidates, draft)
		if !ok {
			g.report(CodeItemSelectionFailed, regulator.SeverityLow, fmt.Sprintf("could not select an item for %s", position), map[string]any{
				"user_id":    params.UserID,
				"position":   position,
				"candidates": len(candidates),
			})
			continue
		}
		pool = draft.add(best, pool)
		chosen = append(chosen, best)
	}

	if missing := draft.MissingRequired(); len(missing) > 0 {
		g.report(CodeIncompleteOutfit, regulator.SeverityHigh, "outfit is missing required positions", map[string]any{
			"user_id": params.UserID,
			"missing": missing,
		})
	}

	for len(draft.Clothes) < maxItems && len(pool) > 0 {
		position := determineNextPosition(draft)
		if position == "" {
			break
		}
		candidates := suitableItems(pool, position, draft, tips)
		if len(candidates) == 0 {
			log.Debugw("no optional candidates", "position", position)
			break
		}
		best, ok := selectBestMatch(candidates, draft)
		if !ok {
			g.report(CodeOptionalItemSelectionFailed, regulator.SeverityLow, fmt.Sprintf("could not select an optional item for %s", position), map[string]any{
				"user_id":  params.UserID,
				"position": position,
			})
			break
		}
		pool = draft.add(best, pool)
		chosen = append(chosen, best)
	}

	if len(chosen) >= 2 {
		g.validateStyleCoherence(chosen, params)
	}
	log.Debugw("outfit generated", "items", len(draft.Clothes), "complete", draft.Complete())
	return draft, nil
}

func newDraft(params Params) *OutfitDraft {
	season := tagutil.NormalizeTags(params.Season)
	return &OutfitDraft{
		UserID:       params.UserID,
		Clothes:      []OutfitSlot{},
		Occasion:     tagutil.NormalizeTags(params.Occasion),
		Season:       season,
		Weather:      tagutil.NormalizeTags(params.Weather),
		Style:        tagutil.NormalizeTags(params.PreferredStyles),
		AIGenerated:  true,
		colors:       tagutil.NormalizeTags(params.PreferredColors),
		mergeSeasons: len(season) == 0,
	}
}

// add records item in the draft, merges its tags and returns the pool without it.
func (d *OutfitDraft) add(item poolItem, pool []poolItem) []poolItem {
	d.Clothes = append(d.Clothes, OutfitSlot{ItemID: item.ID, Position: item.position})
	d.Style = mergeTags(d.Style, item.Styles)
	d.colors = mergeTags(d.colors, item.Colors)
	if d.mergeSeasons {
		d.Season = mergeTags(d.Season, item.Seasons)
	}
	rest := make([]poolItem, 0, len(pool))
	for _, p := range pool {
		if p.ID != item.ID {
			rest = append(rest, p)
		}
	}
	return rest
}

func mergeTags(into, tags []string) []string {
	for _, tag := range tags {
		if !containsTag(into, tag) {
			into = append(into, tag)
		}
	}
	return into
}

// filterItems applies the hard constraints: identity, exclusions, season and
// weather. The first item wins when ids repeat.
func filterItems(items []WardrobeItem, params Params) []poolItem {
	excluded := make(map[string]bool, len(params.ExcludeItems))
	for _, id := range params.ExcludeItems {
		excluded[id] = true
	}
	seasons := tagutil.NormalizeTags(params.Season)
	weather := tagutil.NormalizeTags(params.Weather)

	seen := map[string]bool{}
	pool := []poolItem{}
	for _, item := range items {
		if item.ID == "" || excluded[item.ID] || seen[item.ID] {
			continue
		}
		normalized := WardrobeItem{
			ID:          item.ID,
			Category:    item.Category,
			SubCategory: item.SubCategory,
			Colors:      tagutil.NormalizeTags(item.Colors),
			Styles:      tagutil.NormalizeTags(item.Styles),
			Seasons:     tagutil.NormalizeTags(item.Seasons),
			Weather:     tagutil.NormalizeTags(item.Weather),
		}
		if len(seasons) > 0 && !containsTag(normalized.Seasons, "all-season") && !intersects(normalized.Seasons, seasons) {
			continue
		}
		if len(weather) > 0 && !intersects(normalized.Weather, weather) {
			continue
		}
		position, ok := PositionFor(normalized)
		if !ok {
			continue
		}
		seen[item.ID] = true
		pool = append(pool, poolItem{WardrobeItem: normalized, position: position})
	}
	return pool
}

func (g *Generator) fetchTips(params Params) []Tip {
	if g.tips == nil {
		return nil
	}
	ageCategory := params.AgeCategory
	if ageCategory == "" {
		ageCategory = AgeCategoryFor(params.Age)
	}
	tips, err := g.tips.Tips(context.Background(), TipQuery{
		AgeCategory: ageCategory,
		Gender:      params.Gender,
		Styles:      mergeTags(tagutil.NormalizeTags(params.BaseStylePreferences), tagutil.NormalizeTags(params.PreferredStyles)),
		Seasons:     params.Season,
	})
	if err != nil {
		g.logger.Warnw("could not load styling tips", "user_id", params.UserID, "error", err)
		return nil
	}
	return tips
}

// suitableItems returns the pool items that fit position and the styles
// already in the outfit, narrowed by the tips for that position.
func suitableItems(pool []poolItem, position Position, draft *OutfitDraft, tips []Tip) []poolItem {
	var out []poolItem
	for _, item := range pool {
		if item.position != position {
			continue
		}
		if len(draft.Clothes) > 0 && !styleFits(item, draft) {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return applyTips(out, tipsFor(tips, position))
}

// styleFits treats untagged items and untagged outfits as neutral.
func styleFits(item poolItem, draft *OutfitDraft) bool {
	if len(item.Styles) == 0 || len(draft.Style) == 0 {
		return true
	}
	return anyStyleCompatible(item.Styles, draft.Style)
}

// selectBestMatch returns the highest scoring candidate; ties go to the
// earliest one.
func selectBestMatch(candidates []poolItem, draft *OutfitDraft) (poolItem, bool) {
	best, bestScore := -1, -1
	for i, c := range candidates {
		if score := calculateItemScore(c, draft); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return poolItem{}, false
	}
	return candidates[best], true
}

func calculateItemScore(item poolItem, draft *OutfitDraft) int {
	score := 0
	for _, style := range item.Styles {
		if containsTag(draft.Style, style) {
			score += 2
		}
	}
	for _, color := range item.Colors {
		for _, existing := range draft.colors {
			if ColorsCompatible(color, existing) {
				score++
				break
			}
		}
	}
	if intersects(item.Seasons, draft.Season) {
		score++
	}
	return score
}

// validateStyleCoherence only reports; it never changes the outfit.
// Untagged items are style-neutral and stay out of the intersection.
func (g *Generator) validateStyleCoherence(chosen []poolItem, params Params) {
	var shared []string
	tagged := 0
	for _, item := range chosen {
		if len(item.Styles) == 0 {
			continue
		}
		tagged++
		if tagged == 1 {
			shared = append([]string(nil), item.Styles...)
			continue
		}
		var next []string
		for _, style := range shared {
			if containsTag(item.Styles, style) {
				next = append(next, style)
			}
		}
		shared = next
	}
	if tagged > 0 && len(shared) == 0 {
		g.report(CodeStyleMismatch, regulator.SeverityMedium, "outfit items share no common style", map[string]any{
			"user_id": params.UserID,
			"items":   itemIDs(chosen),
		})
	}

	for i := 0; i < len(chosen); i++ {
		for j := i + 1; j < len(chosen); j++ {
			for _, a := range chosen[i].Colors {
				for _, b := range chosen[j].Colors {
					if !ColorsCompatible(a, b) {
						g.report(CodeColorMismatch, regulator.SeverityLow, fmt.Sprintf("%s does not go with %s", a, b), map[string]any{
							"user_id": params.UserID,
							"items":   []string{chosen[i].ID, chosen[j].ID},
						})
						return
					}
				}
			}
		}
	}
}

func itemIDs(items []poolItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (g *Generator) report(code string, severity regulator.Severity, message string, ctx map[string]any) {
	g.logger.Debugw("outfit generation issue", "code", code, "message", message)
	g.reporter.LogError(regulator.ErrorRecord{
		Name:     generationErrorName,
		Message:  message,
		Code:     code,
		Severity: severity,
		Source:   regulator.SourceServer,
		Context:  ctx,
	})
}
