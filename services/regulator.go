package services

import (
	"fmt"

	"wardrobeapi/outfits"
	"wardrobeapi/regulator"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewRegulator loads the regulations from REGULATIONS_FILE, or the built in
// defaults when it is unset.
func NewRegulator(logger *zap.SugaredLogger, notifiers ...regulator.Notifier) (*regulator.Regulator, error) {
	regulations := regulator.DefaultRegulations()
	if path := GetEnv("REGULATIONS_FILE", ""); path != "" {
		loaded, err := regulator.LoadRegulations(path)
		if err != nil {
			return nil, err
		}
		regulations = loaded
	}
	return regulator.New(
		regulator.WithLogger(logger),
		regulator.WithCapacity(GetEnvInt("REGULATOR_HISTORY", regulator.DefaultHistoryCapacity)),
		regulator.WithRegulations(regulations...),
		regulator.WithNotifiers(notifiers...),
	), nil
}

// NewGenerationStack wires the generator, its cached tips and the outfit
// service around reg.
func NewGenerationStack(db *gorm.DB, reg *regulator.Regulator, logger *zap.SugaredLogger) (*OutfitService, error) {
	tips, err := NewCachedTipSource(outfits.DefaultTips, logger)
	if err != nil {
		return nil, fmt.Errorf("tips cache: %w", err)
	}
	generator := outfits.NewGenerator(reg, outfits.WithTips(tips), outfits.WithLogger(logger))
	return NewOutfitService(db, generator, reg, logger), nil
}
