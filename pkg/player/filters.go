package player

import (
	"sort"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// FilterPreset is a named, ready-to-apply filter configuration.
type FilterPreset struct {
	Name        string
	Description string
	Filters     lavalink.Filters
}

func timescale(speed, pitch, rate float64) *lavalink.Timescale {
	return &lavalink.Timescale{Speed: speed, Pitch: pitch, Rate: rate}
}

var filterPresets = map[string]FilterPreset{
	"off": {
		Name:        "off",
		Description: "Disable all filters",
		Filters:     lavalink.Filters{},
	},
	"bassboost": {
		Name:        "bassboost",
		Description: "Boost the low end",
		Filters: lavalink.Filters{
			Equalizer: []lavalink.EqBand{
				{Band: 0, Gain: 0.20},
				{Band: 1, Gain: 0.15},
				{Band: 2, Gain: 0.10},
				{Band: 3, Gain: 0.05},
			},
		},
	},
	"nightcore": {
		Name:        "nightcore",
		Description: "Faster and higher pitched",
		Filters: lavalink.Filters{
			Timescale: timescale(1.2, 1.2, 1.0),
		},
	},
	"daycore": {
		Name:        "daycore",
		Description: "Slower and lower pitched",
		Filters: lavalink.Filters{
			Timescale: timescale(0.8, 0.8, 1.0),
		},
	},
	"vaporwave": {
		Name:        "vaporwave",
		Description: "Slowed with a slight pitch drop and tremolo",
		Filters: lavalink.Filters{
			Timescale: timescale(0.85, 0.9, 1.0),
			Tremolo:   &lavalink.Tremolo{Frequency: 14.0, Depth: 0.25},
		},
	},
	"karaoke": {
		Name:        "karaoke",
		Description: "Suppress the vocal band",
		Filters: lavalink.Filters{
			Karaoke: &lavalink.Karaoke{
				Level:       1.0,
				MonoLevel:   1.0,
				FilterBand:  220.0,
				FilterWidth: 100.0,
			},
		},
	},
	"8d": {
		Name:        "8d",
		Description: "Audio rotates around the listener",
		Filters: lavalink.Filters{
			Rotation: &lavalink.Rotation{RotationHz: 0.2},
		},
	},
	"tremolo": {
		Name:        "tremolo",
		Description: "Wavering volume",
		Filters: lavalink.Filters{
			Tremolo: &lavalink.Tremolo{Frequency: 4.0, Depth: 0.75},
		},
	},
	"vibrato": {
		Name:        "vibrato",
		Description: "Wavering pitch",
		Filters: lavalink.Filters{
			Vibrato: &lavalink.Vibrato{Frequency: 4.0, Depth: 0.75},
		},
	},
	"lofi": {
		Name:        "lofi",
		Description: "Muffled low-fidelity sound",
		Filters: lavalink.Filters{
			LowPass: &lavalink.LowPass{Smoothing: 20.0},
		},
	},
	"slowed": {
		Name:        "slowed",
		Description: "Slowed without pitch change",
		Filters: lavalink.Filters{
			Timescale: timescale(0.8, 1.0, 1.0),
		},
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (FilterPreset, bool) {
	preset, ok := filterPresets[name]
	return preset, ok
}

// PresetNames returns all registered preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(filterPresets))
	for name := range filterPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
