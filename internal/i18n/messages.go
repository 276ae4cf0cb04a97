package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	NewsDisabled      = "slide.news.disabled"
	NewsEmpty         = "slide.news.empty"
	NewsLoading       = "slide.news.loading"
	EfemeridesEmpty   = "slide.efemerides.empty"
	EfemeridesLoading = "slide.efemerides.loading"
	SantoralEmpty     = "slide.santoral.empty"
	SantoralTitle     = "slide.santoral.title"
	HolidaysEmpty     = "slide.holidays.empty"
	HolidaysTitle     = "slide.holidays.title"
	DayInfoDisabled   = "slide.dayinfo.disabled"
	AgeNow            = "age.now"
	AgeMinutes        = "age.minutes"
	AgeHours          = "age.hours"
	AgeDays           = "age.days"
	ForecastToday     = "forecast.today"
)

func init() {
	es := language.Spanish
	message.SetString(es, NewsDisabled, "Noticias desactivadas")
	message.SetString(es, NewsEmpty, "Sin titulares disponibles")
	message.SetString(es, NewsLoading, "Cargando noticias…")
	message.SetString(es, EfemeridesEmpty, "Efemérides no disponibles")
	message.SetString(es, EfemeridesLoading, "Cargando efemérides…")
	message.SetString(es, SantoralEmpty, "Santoral no disponible")
	message.SetString(es, SantoralTitle, "Santoral: %s")
	message.SetString(es, HolidaysEmpty, "Hoy no es festivo")
	message.SetString(es, HolidaysTitle, "Festivo: %s")
	message.SetString(es, DayInfoDisabled, "Información del día desactivada")
	message.SetString(es, AgeNow, "ahora")
	message.SetString(es, AgeMinutes, "hace %d min")
	message.SetString(es, AgeHours, "hace %d h")
	message.SetString(es, AgeDays, "hace %d d")
	message.SetString(es, ForecastToday, "Hoy")

	en := language.English
	message.SetString(en, NewsDisabled, "News disabled")
	message.SetString(en, NewsEmpty, "No headlines available")
	message.SetString(en, NewsLoading, "Loading news…")
	message.SetString(en, EfemeridesEmpty, "On this day unavailable")
	message.SetString(en, EfemeridesLoading, "Loading on this day…")
	message.SetString(en, SantoralEmpty, "Name days unavailable")
	message.SetString(en, SantoralTitle, "Name days: %s")
	message.SetString(en, HolidaysEmpty, "Not a holiday today")
	message.SetString(en, HolidaysTitle, "Holiday: %s")
	message.SetString(en, DayInfoDisabled, "Day info disabled")
	message.SetString(en, AgeNow, "just now")
	message.SetString(en, AgeMinutes, "%d min ago")
	message.SetString(en, AgeHours, "%d h ago")
	message.SetString(en, AgeDays, "%d d ago")
	message.SetString(en, ForecastToday, "Today")
}
