package rotation

import (
	"time"

	"golang.org/x/text/width"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
)

const (
	// ScrollSpeed is the marquee speed in pixels per second.
	ScrollSpeed = 60.0
	// MinMarqueeDuration keeps short overflowing lines readable.
	MinMarqueeDuration = 8 * time.Second
)

// Measurer returns the rendered width of text in pixels.
type Measurer interface {
	Width(text string) float64
}

// EstimateMeasurer approximates text width from the font size: narrow runes
// take about half an em, East Asian wide and fullwidth runes a full em.
type EstimateMeasurer struct {
	FontSize float64
}

func (m EstimateMeasurer) Width(text string) float64 {
	var ems float64
	for _, r := range text {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			ems += 1
		default:
			ems += 0.55
		}
	}
	return ems * m.FontSize
}

// Marquee returns the scroll settings for text inside a container of the
// given width, or nil when the text fits.
func Marquee(text string, containerWidth float64, m Measurer) *models.Marquee {
	if containerWidth <= 0 || m == nil {
		return nil
	}
	w := m.Width(text)
	if w <= containerWidth {
		return nil
	}
	d := time.Duration(w / ScrollSpeed * float64(time.Second))
	if d < MinMarqueeDuration {
		d = MinMarqueeDuration
	}
	return &models.Marquee{TextWidth: w, Duration: d}
}

// detailMarquees measures every detail line. It returns nil when all fit.
func detailMarquees(details []string, lay *Layout) []*models.Marquee {
	var out []*models.Marquee
	for i, line := range details {
		m := Marquee(line, lay.ContainerWidth, lay.Measurer)
		if m == nil {
			continue
		}
		if out == nil {
			out = make([]*models.Marquee, len(details))
		}
		out[i] = m
	}
	return out
}
