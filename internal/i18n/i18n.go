// Package i18n holds the user-facing strings of the display.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedTags = []language.Tag{
	language.Spanish,
	language.English,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Default returns the display language used when none is configured.
func Default() language.Tag {
	return language.Spanish
}

// Resolve maps a configured language string to a supported tag.
func Resolve(lang string) language.Tag {
	if lang == "" {
		return Default()
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return Default()
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
