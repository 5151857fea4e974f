// Package render turns flushed draw commands into frames and writes them
// to sinks.
//
// Coordinates are in pixels with the origin at the centre of the frame and
// the y axis pointing up. Rectangles are positioned by their centre.
package render

import (
	"image"
	"image/color"
	imgdraw "image/draw"
	"math"

	"github.com/reglet-dev/framescript/draw"
)

// Frame is one rendered step of a session.
type Frame struct {
	Index    int            `json:"index"`
	Time     float32        `json:"time"`
	Commands []draw.Command `json:"commands"`
}

// Background is the default fill behind every frame.
var Background = color.RGBA{R: 16, G: 16, B: 24, A: 255}

// Rasterize paints cmds onto a new width x height image filled with bg.
// Commands are painted in order; later commands cover earlier ones.
func Rasterize(cmds []draw.Command, width, height int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imgdraw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, imgdraw.Src)

	for _, cmd := range cmds {
		if cmd.Kind != draw.KindRect {
			continue
		}
		r := rectBounds(cmd, width, height).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		imgdraw.Draw(img, r, image.NewUniform(cmd.Color), image.Point{}, imgdraw.Over)
	}
	return img
}

// rectBounds maps a centre-origin, y-up rectangle to image coordinates.
func rectBounds(cmd draw.Command, width, height int) image.Rectangle {
	cx := float64(width)/2 + float64(cmd.X)
	cy := float64(height)/2 - float64(cmd.Y)
	hw, hh := float64(cmd.W)/2, float64(cmd.H)/2

	if math.IsNaN(cx) || math.IsNaN(cy) || math.IsInf(cx, 0) || math.IsInf(cy, 0) {
		return image.Rectangle{}
	}
	return image.Rect(
		clampInt(math.Round(cx-hw)),
		clampInt(math.Round(cy-hh)),
		clampInt(math.Round(cx+hw)),
		clampInt(math.Round(cy+hh)),
	)
}

func clampInt(v float64) int {
	const limit = 1 << 30
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	default:
		return int(v)
	}
}
