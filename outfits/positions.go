package outfits

import "wardrobeapi/tagutil"

type Position string

const (
	PositionTop       Position = "top"
	PositionBottom    Position = "bottom"
	PositionShoes     Position = "shoes"
	PositionOuter     Position = "outer"
	PositionLayer     Position = "layer"
	PositionAccessory Position = "accessory"
)

var AllPositions = []Position{PositionTop, PositionBottom, PositionShoes, PositionOuter, PositionLayer, PositionAccessory}

// RequiredPositions are filled first, in this order.
var RequiredPositions = []Position{PositionTop, PositionBottom, PositionShoes}

type optionalSlot struct {
	position Position
	limit    int
}

var optionalSlots = []optionalSlot{
	{PositionOuter, 1},
	{PositionAccessory, 3},
	{PositionLayer, 1},
}

// positionBySubCategory maps normalized sub categories onto outfit positions.
var positionBySubCategory = map[string]Position{
	// tops
	"t-shirt":    PositionTop,
	"tshirt":     PositionTop,
	"shirt":      PositionTop,
	"blouse":     PositionTop,
	"polo":       PositionTop,
	"tank-top":   PositionTop,
	"crop-top":   PositionTop,
	"sweater":    PositionTop,
	"jumper":     PositionTop,
	"hoodie":     PositionTop,
	"sweatshirt": PositionTop,
	"turtleneck": PositionTop,
	"blazer":     PositionTop,
	"dress":      PositionTop,
	"jumpsuit":   PositionTop,

	// bottoms
	"jeans":    PositionBottom,
	"trousers": PositionBottom,
	"pants":    PositionBottom,
	"chinos":   PositionBottom,
	"shorts":   PositionBottom,
	"skirt":    PositionBottom,
	"leggings": PositionBottom,
	"joggers":  PositionBottom,

	// shoes
	"sneakers": PositionShoes,
	"trainers": PositionShoes,
	"boots":    PositionShoes,
	"loafers":  PositionShoes,
	"heels":    PositionShoes,
	"sandals":  PositionShoes,
	"flats":    PositionShoes,
	"oxfords":  PositionShoes,
	"mules":    PositionShoes,

	// outerwear
	"coat":     PositionOuter,
	"jacket":   PositionOuter,
	"parka":    PositionOuter,
	"trench":   PositionOuter,
	"puffer":   PositionOuter,
	"raincoat": PositionOuter,

	// layers
	"cardigan":  PositionLayer,
	"vest":      PositionLayer,
	"waistcoat": PositionLayer,
	"overshirt": PositionLayer,
	"gilet":     PositionLayer,

	// accessories
	"bag":        PositionAccessory,
	"belt":       PositionAccessory,
	"hat":        PositionAccessory,
	"cap":        PositionAccessory,
	"scarf":      PositionAccessory,
	"watch":      PositionAccessory,
	"sunglasses": PositionAccessory,
	"jewelry":    PositionAccessory,
	"necklace":   PositionAccessory,
	"earrings":   PositionAccessory,
	"tie":        PositionAccessory,
	"gloves":     PositionAccessory,
}

// PositionFor resolves the outfit position of an item from its sub category,
// falling back to the category when it names a position itself.
func PositionFor(item WardrobeItem) (Position, bool) {
	if p, ok := positionBySubCategory[tagutil.NormalizeTag(item.SubCategory)]; ok {
		return p, true
	}
	category := tagutil.NormalizeTag(item.Category)
	if p, ok := positionBySubCategory[category]; ok {
		return p, true
	}
	if IsPosition(category) {
		return Position(category), true
	}
	switch category {
	case "tops":
		return PositionTop, true
	case "bottoms":
		return PositionBottom, true
	case "footwear":
		return PositionShoes, true
	case "outerwear":
		return PositionOuter, true
	case "accessories":
		return PositionAccessory, true
	}
	return "", false
}

func IsPosition(value string) bool {
	for _, p := range AllPositions {
		if string(p) == value {
			return true
		}
	}
	return false
}

// determineNextPosition picks the first optional slot still below its cap.
// An empty result means every optional slot is full.
func determineNextPosition(draft *OutfitDraft) Position {
	for _, slot := range optionalSlots {
		if draft.count(slot.position) < slot.limit {
			return slot.position
		}
	}
	return ""
}
