package activity

import (
	"strings"
	"testing"
	"time"
)

func TestLocaleTag(t *testing.T) {
	tests := map[OutputLanguage]string{
		LanguageChinese:  "zh-CN",
		LanguageEnglish:  "en-US",
		LanguageJapanese: "ja-JP",
		LanguageKorean:   "ko-KR",
		LanguageFrench:   "fr-FR",
		LanguageGerman:   "de-DE",
		LanguageSpanish:  "es-ES",
		"":               "en-US",
		"ELVISH":         "en-US",
	}
	for lang, want := range tests {
		if got := LocaleTag(lang); got != want {
			t.Errorf("LocaleTag(%q) = %q, expected %q", lang, got, want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	day := time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC)

	if got := FormatDate(day, LanguageEnglish); got != "Saturday, October 17, 2026" {
		t.Errorf("FormatDate(ENGLISH) = %q", got)
	}
	if got := FormatDate(day, "unknown"); got != "Saturday, October 17, 2026" {
		t.Errorf("FormatDate(unknown) = %q, expected the en-US rendering", got)
	}

	for _, lang := range Languages {
		got := FormatDate(day, lang)
		if got == "" {
			t.Errorf("FormatDate(%s) is empty", lang)
		}
		if !strings.Contains(got, "2026") {
			t.Errorf("FormatDate(%s) = %q, missing the year", lang, got)
		}
		if again := FormatDate(day, lang); again != got {
			t.Errorf("FormatDate(%s) is not deterministic: %q vs %q", lang, got, again)
		}
	}
}

func TestFormatDate_UsesLocationOfInstant(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	instant := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

	if got := FormatDate(instant.In(shanghai), LanguageEnglish); got != "Sunday, October 18, 2026" {
		t.Errorf("FormatDate in +08:00 = %q", got)
	}
}
