package regulator

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var ErrInvalidRegulation = errors.New("invalid regulation")

type regulationFile struct {
	Regulations []Regulation `yaml:"regulations"`
}

// DefaultRegulations is the built-in rule set used when no file is configured.
func DefaultRegulations() []Regulation {
	return []Regulation{
		{
			ID:   "generation-failure-breaker",
			Name: "Stop generating after repeated failures",
			Condition: Condition{
				ErrorCode:         "GENERATION_FAILED",
				ErrorCount:        3,
				TimeWindowMinutes: 5,
			},
			Action: Action{Type: ActionCircuitBreaker, Params: map[string]any{"cooldown_seconds": 30}},
			Status: StatusActive,
		},
		{
			ID:   "incomplete-outfit-notify",
			Name: "Incomplete outfits spike",
			Condition: Condition{
				ErrorCode:         "INCOMPLETE_OUTFIT",
				ErrorCount:        10,
				TimeWindowMinutes: 15,
			},
			Action:          Action{Type: ActionNotify},
			Status:          StatusActive,
			CooldownSeconds: 600,
		},
		{
			ID:   "high-severity-alert",
			Name: "High severity error",
			Condition: Condition{
				ErrorCount: 1,
				Severity:   []Severity{SeverityHigh},
			},
			Action:          Action{Type: ActionNotify},
			Status:          StatusActive,
			CooldownSeconds: 60,
		},
		{
			ID:   "style-mismatch-adjust",
			Name: "Relax style matching",
			Condition: Condition{
				ErrorCode:         "STYLE_MISMATCH",
				ErrorCount:        5,
				TimeWindowMinutes: 10,
			},
			Action:          Action{Type: ActionAdjust, Params: map[string]any{"relax_style_matching": true}},
			Status:          StatusActive,
			CooldownSeconds: 300,
		},
		{
			ID:   "empty-wardrobe-fallback",
			Name: "Fallback when wardrobes are empty",
			Condition: Condition{
				ErrorCode:         "NO_SUITABLE_ITEMS",
				ErrorCount:        20,
				TimeWindowMinutes: 10,
			},
			Action:          Action{Type: ActionFallback, Params: map[string]any{"mode": "basic_outfits"}},
			Status:          StatusActive,
			CooldownSeconds: 300,
		},
		{
			ID:   "client-error-throttle",
			Name: "Throttle noisy clients",
			Condition: Condition{
				Source:            []Source{SourceClient},
				ErrorCount:        50,
				TimeWindowMinutes: 1,
			},
			Action:          Action{Type: ActionThrottle, Params: map[string]any{"requests_per_minute": 10}},
			Status:          StatusActive,
			CooldownSeconds: 60,
		},
	}
}

// LoadRegulations reads a YAML regulation file of the form
//
//	regulations:
//	  - id: ...
//	    condition: {...}
//	    action: {type: notify}
func LoadRegulations(path string) ([]Regulation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regulations: %w", err)
	}
	return ParseRegulations(raw)
}

func ParseRegulations(raw []byte) ([]Regulation, error) {
	var file regulationFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse regulations: %w", err)
	}
	seen := map[string]bool{}
	for i := range file.Regulations {
		reg := &file.Regulations[i]
		if reg.Status == "" {
			reg.Status = StatusActive
		}
		if err := validateRegulation(*reg); err != nil {
			return nil, err
		}
		if seen[reg.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRegulation, reg.ID)
		}
		seen[reg.ID] = true
	}
	return file.Regulations, nil
}

func validateRegulation(reg Regulation) error {
	if reg.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRegulation)
	}
	switch reg.Action.Type {
	case ActionNotify, ActionAdjust, ActionFallback, ActionThrottle, ActionCircuitBreaker, ActionDisable:
	default:
		return fmt.Errorf("%w: %s: unknown action %q", ErrInvalidRegulation, reg.ID, reg.Action.Type)
	}
	switch reg.Status {
	case StatusActive, StatusInactive, StatusTesting:
	default:
		return fmt.Errorf("%w: %s: unknown status %q", ErrInvalidRegulation, reg.ID, reg.Status)
	}
	if reg.Condition.Pattern != "" {
		if _, err := regexp.Compile(reg.Condition.Pattern); err != nil {
			return fmt.Errorf("%w: %s: pattern: %v", ErrInvalidRegulation, reg.ID, err)
		}
	}
	if reg.Condition.ErrorCount < 0 || reg.Condition.TimeWindowMinutes < 0 {
		return fmt.Errorf("%w: %s: negative threshold", ErrInvalidRegulation, reg.ID)
	}
	return nil
}
