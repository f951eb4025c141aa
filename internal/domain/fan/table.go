package fan

import (
	"fmt"
	"maps"
	"slices"
)

// SpeedTable maps a temperature to a target fan speed percentage.
// It is immutable after construction and safe for concurrent use.
type SpeedTable struct {
	entries map[int]int
}

// NewSpeedTable validates entries and returns a table holding a private copy of them.
func NewSpeedTable(entries map[int]int) (*SpeedTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("speed table is empty: %w", ErrConfig)
	}

	for temperature, percent := range entries {
		if percent < 0 || percent > MaxSpeed {
			return nil, fmt.Errorf("speed %d%% for temperature %d is out of range 0..%d: %w",
				percent, temperature, MaxSpeed, ErrConfig)
		}
	}

	return &SpeedTable{
		entries: maps.Clone(entries),
	}, nil
}

// Resolve returns the configured speed for the exact temperature.
// There is no interpolation or fallback to a neighbouring entry.
func (t *SpeedTable) Resolve(temperature int) (int, error) {
	percent, ok := t.entries[temperature]
	if !ok {
		return 0, fmt.Errorf("no speed configured for temperature %d: %w", temperature, ErrUnknownTemperature)
	}

	return percent, nil
}

// Len returns the number of entries.
func (t *SpeedTable) Len() int {
	return len(t.entries)
}

// Range returns the lowest and highest configured temperatures.
func (t *SpeedTable) Range() (lowest, highest int) {
	temperatures := slices.Sorted(maps.Keys(t.entries))
	if len(temperatures) == 0 {
		return 0, 0
	}

	return temperatures[0], temperatures[len(temperatures)-1]
}
