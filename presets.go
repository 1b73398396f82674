package tfs

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
)

// DefaultPresetSlug names the preset used by [DefaultConfig].
const DefaultPresetSlug = "tecnico"

// Preset is a named set of capacity constants.
type Preset struct {
	Slug         string `csv:"slug"`
	Description  string `csv:"description"`
	BlockSize    uint   `csv:"block_size"`
	TotalBlocks  uint   `csv:"total_blocks"`
	TotalInodes  uint   `csv:"total_inodes"`
	MaxOpenFiles uint   `csv:"max_open_files"`
}

// Config returns a configuration with the preset's capacities and default
// values for everything else.
func (p Preset) Config() Config {
	return Config{
		BlockSize:     p.BlockSize,
		TotalBlocks:   p.TotalBlocks,
		TotalInodes:   p.TotalInodes,
		MaxOpenFiles:  p.MaxOpenFiles,
		AccessDelayMS: DefaultAccessDelayMS,
	}
}

//go:embed presets.csv
var presetsRawCSV string
var presets map[string]Preset

// GetPreset returns the preset with the given slug.
func GetPreset(slug string) (Preset, error) {
	preset, ok := presets[slug]
	if ok {
		return preset, nil
	}
	return Preset{}, fmt.Errorf("no predefined capacity preset exists with slug %q", slug)
}

// Presets returns all predefined presets sorted by slug.
func Presets() []Preset {
	result := make([]Preset, 0, len(presets))
	for _, preset := range presets {
		result = append(result, preset)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result
}

func init() {
	var rows []Preset
	if err := gocsv.UnmarshalString(presetsRawCSV, &rows); err != nil {
		panic(fmt.Errorf("failed to decode capacity presets: %w", err))
	}

	presets = make(map[string]Preset, len(rows))
	for i, row := range rows {
		if _, exists := presets[row.Slug]; exists {
			panic(fmt.Errorf("duplicate definition for preset %q found on row %d", row.Slug, i+1))
		}
		if err := row.Config().Validate(); err != nil {
			panic(fmt.Errorf("preset %q on row %d is invalid: %w", row.Slug, i+1, err))
		}
		presets[row.Slug] = row
	}
}
