// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package plot

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

var palette = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0xff, 0x7f, 0x0e, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0xd6, 0x27, 0x28, 0xff},
}

const (
	marginLeft   = 0.15
	marginRight  = 0.05
	marginTop    = 0.04
	marginBottom = 0.06
	panelGap     = 60.0
	ticks        = 5
)

// Render draws fig into a w×h image.
func Render(fig Figure, w, h int) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	left := float64(w) * marginLeft
	right := float64(w) * (1 - marginRight)
	top := float64(h) * marginTop
	bottom := float64(h) * (1 - marginBottom)

	n := len(fig.Panels)
	if n > 0 {
		ph := (bottom - top - panelGap*float64(n-1)) / float64(n)
		for i, p := range fig.Panels {
			y0 := top + float64(i)*(ph+panelGap)
			drawPanel(dc, p, left, y0, right-left, ph)
		}
	}

	// parameters run up the left edge
	dc.SetRGB(0, 0, 0)
	for i, a := range fig.Annotations {
		x := 20 + float64(i)*16
		y := float64(h) / 2
		dc.Push()
		dc.RotateAbout(gg.Radians(-90), x, y)
		dc.DrawStringAnchored(a, x, y, 0.5, 0.5)
		dc.Pop()
	}
	if fig.Caption != "" {
		dc.DrawString(fig.Caption, float64(w)*0.02, float64(h)-10)
	}
	return dc.Image()
}

func bounds(lines []Line) (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, l := range lines {
		for i := range l.X {
			if i >= len(l.Y) {
				break
			}
			xmin, xmax = math.Min(xmin, l.X[i]), math.Max(xmax, l.X[i])
			ymin, ymax = math.Min(ymin, l.Y[i]), math.Max(ymax, l.Y[i])
		}
	}
	if math.IsInf(xmin, 1) {
		return 0, 1, 0, 1
	}
	if xmax == xmin {
		xmin, xmax = xmin-1, xmax+1
	}
	if ymax == ymin {
		ymin, ymax = ymin-1, ymax+1
	}
	return xmin, xmax, ymin, ymax
}

func drawPanel(dc *gg.Context, p Panel, x0, y0, w, h float64) {
	xmin, xmax, ymin, ymax := bounds(p.Lines)
	px := func(x float64) float64 { return x0 + (x-xmin)/(xmax-xmin)*w }
	py := func(y float64) float64 { return y0 + h - (y-ymin)/(ymax-ymin)*h }

	// grid and tick labels
	dc.SetLineWidth(0.5)
	dc.SetDash(4, 4)
	for i := 0; i <= ticks; i++ {
		fx := xmin + (xmax-xmin)*float64(i)/ticks
		fy := ymin + (ymax-ymin)*float64(i)/ticks
		dc.SetRGB(0.8, 0.8, 0.8)
		dc.DrawLine(px(fx), y0, px(fx), y0+h)
		dc.DrawLine(x0, py(fy), x0+w, py(fy))
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%.4g", fx), px(fx), y0+h+12, 0.5, 0.5)
		dc.DrawStringAnchored(fmt.Sprintf("%.4g", fy), x0-6, py(fy), 1, 0.5)
	}
	dc.SetDash()

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, y0, w, h)
	dc.Stroke()
	dc.DrawStringAnchored(p.Title, x0+w/2, y0-10, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), x0-60, y0+h/2)
	dc.DrawStringAnchored(p.YLabel, x0-60, y0+h/2, 0.5, 0.5)
	dc.Pop()

	for i, l := range p.Lines {
		dc.SetColor(palette[i%len(palette)])
		dc.SetLineWidth(1.5)
		if l.Dashed {
			dc.SetDash(6, 3)
		}
		for j := range l.X {
			if j >= len(l.Y) {
				break
			}
			if j == 0 {
				dc.MoveTo(px(l.X[j]), py(l.Y[j]))
			} else {
				dc.LineTo(px(l.X[j]), py(l.Y[j]))
			}
		}
		dc.Stroke()
		dc.SetDash()

		// legend
		ly := y0 + 14 + float64(i)*14
		dc.DrawLine(x0+w-150, ly, x0+w-130, ly)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(l.Label, x0+w-125, ly, 0, 0.5)
	}
}

// SavePNG renders fig and writes it to path, creating parent directories.
func SavePNG(fig Figure, path string, w, h int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := gg.SavePNG(path, Render(fig, w, h)); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
