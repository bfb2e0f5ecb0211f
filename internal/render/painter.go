package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"

	"checklist_dashboard/internal/dashboard"
	"checklist_dashboard/internal/pipeline"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const bandPadding = 0.1

var (
	background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	axisColor  = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	textColor  = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// Margins around the plot area, in pixels.
type Margins struct {
	Top, Right, Bottom, Left int
}

// Painter draws a frame as a static stacked bar chart. It reads the frame's
// segments as they are and does no aggregation of its own.
type Painter struct {
	Width   int
	Height  int
	Margins Margins
	face    font.Face
}

func NewPainter(width, height int) *Painter {
	return &Painter{
		Width:   width,
		Height:  height,
		Margins: Margins{Top: 40, Right: 180, Bottom: 70, Left: 60},
		face:    basicfont.Face7x13,
	}
}

// plot returns the plot rectangle inside the margins.
func (p *Painter) plot() image.Rectangle {
	return image.Rect(p.Margins.Left, p.Margins.Top, p.Width-p.Margins.Right, p.Height-p.Margins.Bottom)
}

// band returns the left edge and width of category i of n, laid out like a
// band scale with equal inner and outer padding.
func band(plot image.Rectangle, i, n int) (int, int) {
	if n == 0 {
		return plot.Min.X, 0
	}
	width := float64(plot.Dx())
	step := width / (float64(n) + bandPadding)
	start := (width - step*(float64(n)-bandPadding)) / 2
	x := float64(plot.Min.X) + start + float64(i)*step
	return int(x), int(step * (1 - bandPadding))
}

// yPos maps a data value onto the plot's vertical pixel range. Values are
// clamped to the numeric domain.
func yPos(plot image.Rectangle, v, max int) int {
	if max <= 0 {
		return plot.Max.Y
	}
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	return plot.Max.Y - int(float64(v)/float64(max)*float64(plot.Dy()))
}

// Paint renders f into a new image.
func (p *Painter) Paint(f dashboard.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	plot := p.plot()

	index := make(map[string]int, len(f.Domains.Categories))
	for i, c := range f.Domains.Categories {
		index[c] = i
	}
	colors := make(map[pipeline.Kind]color.Color, len(f.Legend))
	for _, l := range f.Legend {
		colors[l.Kind] = parseHex(l.Color)
	}

	n := len(f.Domains.Categories)
	for _, s := range f.Segments {
		i, ok := index[s.Category]
		if !ok || s.Height <= 0 {
			continue
		}
		x, w := band(plot, i, n)
		top := yPos(plot, s.Offset, f.Domains.Max)
		bottom := yPos(plot, s.Base, f.Domains.Max)
		if bottom <= top {
			continue
		}
		c, ok := colors[s.Kind]
		if !ok {
			c = axisColor
		}
		draw.Draw(img, image.Rect(x, top, x+w, bottom), image.NewUniform(c), image.Point{}, draw.Src)
	}

	p.drawAxes(img, plot, f)
	p.drawLegend(img, f)
	p.text(img, p.Margins.Left, p.Margins.Top-20, summaryLine(f.Stats))
	return img
}

// WritePNG paints f and encodes it as PNG.
func (p *Painter) WritePNG(w io.Writer, f dashboard.Frame) error {
	if err := png.Encode(w, p.Paint(f)); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func (p *Painter) drawAxes(img *image.RGBA, plot image.Rectangle, f dashboard.Frame) {
	line := image.NewUniform(axisColor)
	draw.Draw(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y+1), line, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), line, image.Point{}, draw.Src)

	if max := f.Domains.Max; max > 0 {
		for _, v := range []int{0, max / 2, max} {
			y := yPos(plot, v, max)
			draw.Draw(img, image.Rect(plot.Min.X-5, y, plot.Min.X, y+1), line, image.Point{}, draw.Src)
			label := strconv.Itoa(v)
			p.text(img, plot.Min.X-8-p.measure(label), y+4, label)
		}
	}

	n := len(f.Domains.Categories)
	for i, c := range f.Domains.Categories {
		x, w := band(plot, i, n)
		label := c
		// Alternate rows keep dense company labels from overlapping.
		dy := 16
		if f.RotateLabels && i%2 == 1 {
			dy += 14
		}
		p.text(img, x+(w-p.measure(label))/2, plot.Max.Y+dy, label)
	}
	p.text(img, plot.Min.X+(plot.Dx()-p.measure(f.XLabel))/2, p.Height-12, f.XLabel)
	p.text(img, 4, plot.Min.Y-4, f.YLabel)
}

func (p *Painter) drawLegend(img *image.RGBA, f dashboard.Frame) {
	x := p.Width - p.Margins.Right + 20
	y := p.Margins.Top
	for _, l := range f.Legend {
		draw.Draw(img, image.Rect(x, y, x+12, y+12), image.NewUniform(parseHex(l.Color)), image.Point{}, draw.Src)
		p.text(img, x+18, y+11, l.Label)
		y += 20
	}
}

func (p *Painter) text(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: p.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func (p *Painter) measure(s string) int {
	return font.MeasureString(p.face, s).Ceil()
}

func summaryLine(s pipeline.Summary) string {
	line := fmt.Sprintf("%s: %d fires, %d checklists", s.Label, s.TotalFires, s.Completed)
	if s.CompletionRateText != "" {
		line += " (" + s.CompletionRateText + ")"
	}
	return line
}

// parseHex reads #RRGGBB; anything else paints grey.
func parseHex(s string) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return axisColor
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return axisColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
