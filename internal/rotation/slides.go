// Package rotation turns upstream data into timed slides: it derives the
// slide list, advances the active slide on an interval and keeps a separate
// cursor over news headlines.
package rotation

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/raffaelramalhorosa/smart-display/internal/i18n"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
)

// Section keys.
const (
	SectionEfemerides = "efemerides"
	SectionSantoral   = "santoral"
	SectionHolidays   = "holidays"
	SectionNews       = "news"
)

// MaxDetails bounds the secondary lines of a slide.
const MaxDetails = 3

// Inputs is the upstream data a slide list is derived from.
type Inputs struct {
	DayInfo        *models.DayInfo
	DayInfoLoading bool
	DayInfoEnabled bool

	Headlines        []models.NewsHeadline
	HeadlinesLoading bool
	NewsEnabled      bool
	NewsCursor       int

	// FoldSantoral puts the santoral into the efemerides slide details
	// instead of giving it a slide of its own.
	FoldSantoral bool

	Now time.Time
}

// BuildSlides derives the ordered slide list. Sections without data get a
// placeholder slide; unknown section keys are skipped.
func BuildSlides(sections []string, in Inputs, p *message.Printer) []models.Slide {
	folded := in.FoldSantoral && contains(sections, SectionEfemerides)

	slides := make([]models.Slide, 0, len(sections))
	for _, key := range sections {
		switch key {
		case SectionEfemerides:
			slides = append(slides, efemeridesSlide(in, folded, p))
		case SectionSantoral:
			if folded {
				continue
			}
			slides = append(slides, santoralSlide(in, p))
		case SectionHolidays:
			slides = append(slides, holidaysSlide(in, p))
		case SectionNews:
			slides = append(slides, newsSlide(in, p))
		}
	}
	return slides
}

func placeholder(key, text string) models.Slide {
	return models.Slide{Key: key, Primary: text, Placeholder: true}
}

// dayInfoPlaceholder reports the placeholder for a day-info section whose
// data is disabled, loading or absent.
func dayInfoPlaceholder(key string, in Inputs, emptyKey string, p *message.Printer) (models.Slide, bool) {
	switch {
	case !in.DayInfoEnabled:
		return placeholder(key, p.Sprintf(i18n.DayInfoDisabled)), true
	case in.DayInfo == nil && in.DayInfoLoading:
		return placeholder(key, p.Sprintf(i18n.EfemeridesLoading)), true
	case in.DayInfo == nil:
		return placeholder(key, p.Sprintf(emptyKey)), true
	}
	return models.Slide{}, false
}

func efemeridesSlide(in Inputs, folded bool, p *message.Printer) models.Slide {
	if s, ok := dayInfoPlaceholder(SectionEfemerides, in, i18n.EfemeridesEmpty, p); ok {
		return s
	}
	items := in.DayInfo.Efemerides
	if len(items) == 0 {
		return placeholder(SectionEfemerides, p.Sprintf(i18n.EfemeridesEmpty))
	}

	var details []string
	if folded && len(in.DayInfo.Santoral) > 0 {
		details = append(details, p.Sprintf(i18n.SantoralTitle, strings.Join(in.DayInfo.Santoral, ", ")))
	}
	for _, e := range items[1:] {
		details = append(details, formatEfemeride(e))
	}
	return models.Slide{
		Key:     SectionEfemerides,
		Primary: formatEfemeride(items[0]),
		Details: bounded(details),
	}
}

func formatEfemeride(e models.Efemeride) string {
	if e.Year == 0 {
		return e.Text
	}
	return fmt.Sprintf("%d · %s", e.Year, e.Text)
}

func santoralSlide(in Inputs, p *message.Printer) models.Slide {
	if s, ok := dayInfoPlaceholder(SectionSantoral, in, i18n.SantoralEmpty, p); ok {
		return s
	}
	names := in.DayInfo.Santoral
	if len(names) == 0 {
		return placeholder(SectionSantoral, p.Sprintf(i18n.SantoralEmpty))
	}
	return models.Slide{
		Key:     SectionSantoral,
		Primary: p.Sprintf(i18n.SantoralTitle, names[0]),
		Details: bounded(names[1:]),
	}
}

func holidaysSlide(in Inputs, p *message.Printer) models.Slide {
	if s, ok := dayInfoPlaceholder(SectionHolidays, in, i18n.HolidaysEmpty, p); ok {
		return s
	}
	names := in.DayInfo.Holidays
	if len(names) == 0 {
		return placeholder(SectionHolidays, p.Sprintf(i18n.HolidaysEmpty))
	}
	return models.Slide{
		Key:     SectionHolidays,
		Primary: p.Sprintf(i18n.HolidaysTitle, names[0]),
		Details: bounded(names[1:]),
	}
}

func newsSlide(in Inputs, p *message.Printer) models.Slide {
	switch {
	case !in.NewsEnabled:
		return placeholder(SectionNews, p.Sprintf(i18n.NewsDisabled))
	case len(in.Headlines) == 0 && in.HeadlinesLoading:
		return placeholder(SectionNews, p.Sprintf(i18n.NewsLoading))
	case len(in.Headlines) == 0:
		return placeholder(SectionNews, p.Sprintf(i18n.NewsEmpty))
	}

	h := in.Headlines[wrap(in.NewsCursor, len(in.Headlines))]
	var details []string
	if h.Source != "" {
		details = append(details, h.Source)
	}
	if h.Published != nil && !in.Now.IsZero() {
		details = append(details, formatAge(in.Now.Sub(*h.Published), p))
	}
	return models.Slide{Key: SectionNews, Primary: h.Title, Details: details}
}

func formatAge(age time.Duration, p *message.Printer) string {
	switch {
	case age < time.Minute:
		return p.Sprintf(i18n.AgeNow)
	case age < time.Hour:
		return p.Sprintf(i18n.AgeMinutes, int(age/time.Minute))
	case age < 24*time.Hour:
		return p.Sprintf(i18n.AgeHours, int(age/time.Hour))
	}
	return p.Sprintf(i18n.AgeDays, int(age/(24*time.Hour)))
}

// StaticSlides returns one slide per key; used for panel rotation where the
// renderer owns the panel content.
func StaticSlides(keys []string) []models.Slide {
	out := make([]models.Slide, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.Slide{Key: k, Primary: k})
	}
	return out
}

func bounded(lines []string) []string {
	if len(lines) > MaxDetails {
		lines = lines[:MaxDetails]
	}
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
