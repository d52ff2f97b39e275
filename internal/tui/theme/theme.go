// Package theme holds the colour palettes shared by the gburn dashboard and CLI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps colour roles to concrete colours.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab, selected row
	SurfaceBright lipgloss.Color
	Border        lipgloss.Color
	BorderBright  lipgloss.Color
	BorderAccent  lipgloss.Color

	TextDim     lipgloss.Color // hints
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	AccentDim    lipgloss.Color

	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
	Blue        lipgloss.Color
	BlueBright  lipgloss.Color
	Yellow      lipgloss.Color
	Magenta     lipgloss.Color
	Cyan        lipgloss.Color
}

// FlexokiDark is the default palette.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    "#100F0F",
	Surface:       "#1C1B1A",
	SurfaceHover:  "#282726",
	SurfaceBright: "#343331",
	Border:        "#403E3C",
	BorderBright:  "#575653",
	BorderAccent:  "#3AA99F",
	TextDim:       "#575653",
	TextMuted:     "#878580",
	TextPrimary:   "#FFFCF0",
	Accent:        "#3AA99F",
	AccentBright:  "#5BC8BE",
	AccentDim:     "#1A3533",
	Green:         "#879A39",
	GreenBright:   "#A3B859",
	Orange:        "#DA702C",
	Red:           "#D14D41",
	Blue:          "#4385BE",
	BlueBright:    "#6BA3D6",
	Yellow:        "#D0A215",
	Magenta:       "#CE5D97",
	Cyan:          "#24837B",
}

var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    "#1A1B26",
	Surface:       "#24283B",
	SurfaceHover:  "#292E42",
	SurfaceBright: "#343A52",
	Border:        "#3B4261",
	BorderBright:  "#545C7E",
	BorderAccent:  "#7AA2F7",
	TextDim:       "#565F89",
	TextMuted:     "#A9B1D6",
	TextPrimary:   "#C0CAF5",
	Accent:        "#7AA2F7",
	AccentBright:  "#A9C1FF",
	AccentDim:     "#24304F",
	Green:         "#9ECE6A",
	GreenBright:   "#B9F27C",
	Orange:        "#FF9E64",
	Red:           "#F7768E",
	Blue:          "#7AA2F7",
	BlueBright:    "#A9C1FF",
	Yellow:        "#E0AF68",
	Magenta:       "#BB9AF7",
	Cyan:          "#7DCFFF",
}

var Nord = Theme{
	Name:          "nord",
	Background:    "#2E3440",
	Surface:       "#3B4252",
	SurfaceHover:  "#434C5E",
	SurfaceBright: "#4C566A",
	Border:        "#4C566A",
	BorderBright:  "#616E88",
	BorderAccent:  "#88C0D0",
	TextDim:       "#616E88",
	TextMuted:     "#D8DEE9",
	TextPrimary:   "#ECEFF4",
	Accent:        "#88C0D0",
	AccentBright:  "#8FBCBB",
	AccentDim:     "#34424F",
	Green:         "#A3BE8C",
	GreenBright:   "#B8D4A0",
	Orange:        "#D08770",
	Red:           "#BF616A",
	Blue:          "#5E81AC",
	BlueBright:    "#81A1C1",
	Yellow:        "#EBCB8B",
	Magenta:       "#B48EAD",
	Cyan:          "#88C0D0",
}

// Terminal sticks to the 16 ANSI colours so it follows the user's terminal scheme.
var Terminal = Theme{
	Name:          "terminal",
	Background:    "0",
	Surface:       "0",
	SurfaceHover:  "8",
	SurfaceBright: "8",
	Border:        "8",
	BorderBright:  "7",
	BorderAccent:  "6",
	TextDim:       "8",
	TextMuted:     "7",
	TextPrimary:   "15",
	Accent:        "6",
	AccentBright:  "14",
	AccentDim:     "0",
	Green:         "2",
	GreenBright:   "10",
	Orange:        "3",
	Red:           "1",
	Blue:          "4",
	BlueBright:    "12",
	Yellow:        "3",
	Magenta:       "5",
	Cyan:          "6",
}

// All lists the themes in the order the settings tab cycles through them.
var All = []Theme{FlexokiDark, TokyoNight, Nord, Terminal}

// Active is the theme every renderer reads.
var Active = FlexokiDark

func lookup(name string) (Theme, bool) {
	for _, t := range All {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// ByName returns the named theme, or FlexokiDark when the name is unknown.
func ByName(name string) Theme {
	if t, ok := lookup(name); ok {
		return t
	}
	return FlexokiDark
}

// Exists reports whether name is a known theme.
func Exists(name string) bool {
	_, ok := lookup(name)
	return ok
}

func Names() []string {
	names := make([]string, 0, len(All))
	for _, t := range All {
		names = append(names, t.Name)
	}
	return names
}

// SetActive switches Active. Unknown names select the default.
func SetActive(name string) {
	Active = ByName(name)
}
