// Package i18n provides locale-aware printers for CLI output.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// Catalog keys used by the CLI.
const (
	MsgGateway      = "Current gateway: %s\n"
	MsgAnchored     = "Anchored to: %s\n"
	MsgPinnedCount  = "%d pinned route(s)\n"
	MsgLiveCount    = "%d live route(s) via gateway\n"
	MsgNoDrift      = "No drift between pinned and live routes.\n"
	MsgNotAnchored  = "never anchored"
	MsgStateFile    = "State file: %s\n"
	MsgRecentHeader = "Recent operations:\n"
)

func init() {
	de := language.German
	_ = message.SetString(de, MsgGateway, "Aktuelles Gateway: %s\n")
	_ = message.SetString(de, MsgAnchored, "Verankert an: %s\n")
	_ = message.SetString(de, MsgPinnedCount, "%d angeheftete Route(n)\n")
	_ = message.SetString(de, MsgLiveCount, "%d aktive Route(n) über das Gateway\n")
	_ = message.SetString(de, MsgNoDrift, "Keine Abweichung zwischen angehefteten und aktiven Routen.\n")
	_ = message.SetString(de, MsgNotAnchored, "nie verankert")
	_ = message.SetString(de, MsgStateFile, "Zustandsdatei: %s\n")
	_ = message.SetString(de, MsgRecentHeader, "Letzte Vorgänge:\n")
}

// MatchLanguage returns the best supported language for a locale string such
// as "de_DE.UTF-8" or an Accept-Language style list.
func MatchLanguage(locale string) language.Tag {
	if i := strings.Index(locale, "."); i != -1 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")

	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, _ := matcher.Match(tags...)
	return SupportedLangs[idx]
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// NewCLIPrinter returns a printer for the system's locale (from env vars)
func NewCLIPrinter() *message.Printer {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return message.NewPrinter(DefaultLang)
	}
	return message.NewPrinter(MatchLanguage(lang))
}
