package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Palette holds the cell colours for fully hit and missed or illegal cells
type Palette struct {
	Good string `yaml:"good" json:"good"`
	Bad  string `yaml:"bad" json:"bad"`
}

// DefaultPalette is the light theme palette
var DefaultPalette = Palette{Good: "#4bff4b", Bad: "#ff4b4b"}

// Style is the shading of one ratio cell. An empty Background means unset.
type Style struct {
	Background string `json:"background,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
}

// Shade picks the style of a ratio cell. Partially hit cells interpolate in
// HSL between 20% and 60% of the way from bad to good, so they never match
// a full or an empty cell.
func (p Palette) Shade(ratio float64) Style {
	switch {
	case math.IsNaN(ratio) || IsNegZero(ratio):
		return Style{}
	case ratio >= 1:
		return Style{Background: p.Good}
	case ratio <= 0:
		return Style{Background: p.Bad, Bold: true}
	}
	bad, okBad := parseHex(p.Bad)
	good, okGood := parseHex(p.Good)
	if !okBad || !okGood {
		return Style{}
	}
	return Style{Background: mixHSL(bad, good, 0.2+0.4*ratio).hex()}
}

// Validate checks both colours are "#rrggbb" hex strings
func (p Palette) Validate() error {
	if _, ok := parseHex(p.Good); !ok {
		return fmt.Errorf("good colour %q is not #rrggbb", p.Good)
	}
	if _, ok := parseHex(p.Bad); !ok {
		return fmt.Errorf("bad colour %q is not #rrggbb", p.Bad)
	}
	return nil
}

// Shade uses DefaultPalette
func Shade(ratio float64) Style {
	return DefaultPalette.Shade(ratio)
}

type rgb struct{ r, g, b float64 }

type hsl struct{ h, s, l float64 }

func parseHex(s string) (rgb, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{
		r: float64(v>>16&0xff) / 255,
		g: float64(v>>8&0xff) / 255,
		b: float64(v&0xff) / 255,
	}, true
}

func (c rgb) hex() string {
	channel := func(f float64) int {
		return int(math.Round(math.Max(0, math.Min(1, f)) * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(c.r), channel(c.g), channel(c.b))
}

func (c rgb) hsl() hsl {
	hi := math.Max(c.r, math.Max(c.g, c.b))
	lo := math.Min(c.r, math.Min(c.g, c.b))
	out := hsl{l: (hi + lo) / 2, h: math.NaN()}
	d := hi - lo
	if d == 0 {
		return out
	}
	if out.l > 0.5 {
		out.s = d / (2 - hi - lo)
	} else {
		out.s = d / (hi + lo)
	}
	switch hi {
	case c.r:
		out.h = math.Mod((c.g-c.b)/d+6, 6)
	case c.g:
		out.h = (c.b-c.r)/d + 2
	default:
		out.h = (c.r-c.g)/d + 4
	}
	out.h *= 60
	return out
}

func (c hsl) rgb() rgb {
	h := c.h
	if math.IsNaN(h) {
		h = 0
	}
	chroma := (1 - math.Abs(2*c.l-1)) * c.s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := c.l - chroma/2
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = chroma, x, 0
	case h < 120:
		r, g, b = x, chroma, 0
	case h < 180:
		r, g, b = 0, chroma, x
	case h < 240:
		r, g, b = 0, x, chroma
	case h < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}
	return rgb{r + m, g + m, b + m}
}

// mixHSL interpolates from a to b along the shorter hue arc
func mixHSL(a, b rgb, t float64) rgb {
	ah, bh := a.hsl(), b.hsl()
	switch {
	case math.IsNaN(ah.h) && math.IsNaN(bh.h):
		ah.h, bh.h = 0, 0
	case math.IsNaN(ah.h):
		ah.h = bh.h
	case math.IsNaN(bh.h):
		bh.h = ah.h
	}
	dh := bh.h - ah.h
	if dh > 180 {
		dh -= 360
	} else if dh < -180 {
		dh += 360
	}
	h := math.Mod(ah.h+dh*t+360, 360)
	return hsl{
		h: h,
		s: ah.s + (bh.s-ah.s)*t,
		l: ah.l + (bh.l-ah.l)*t,
	}.rgb()
}
