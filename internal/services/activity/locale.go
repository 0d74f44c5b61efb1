package activity

import (
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de_DE"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/es_ES"
	"github.com/go-playground/locales/fr_FR"
	"github.com/go-playground/locales/ja_JP"
	"github.com/go-playground/locales/ko_KR"
	"github.com/go-playground/locales/zh_Hans_CN"
)

var localeTags = map[OutputLanguage]string{
	LanguageChinese:  "zh-CN",
	LanguageEnglish:  "en-US",
	LanguageJapanese: "ja-JP",
	LanguageKorean:   "ko-KR",
	LanguageFrench:   "fr-FR",
	LanguageGerman:   "de-DE",
	LanguageSpanish:  "es-ES",
}

var translators = map[string]func() locales.Translator{
	"zh-CN": zh_Hans_CN.New,
	"en-US": en_US.New,
	"ja-JP": ja_JP.New,
	"ko-KR": ko_KR.New,
	"fr-FR": fr_FR.New,
	"de-DE": de_DE.New,
	"es-ES": es_ES.New,
}

// LocaleTag maps an output language to its BCP 47 tag. Unknown languages map
// to en-US.
func LocaleTag(lang OutputLanguage) string {
	if tag, ok := localeTags[lang]; ok {
		return tag
	}
	return "en-US"
}

// FormatDate renders t as a full date (weekday, day, month name, year) in the
// locale of lang.
func FormatDate(t time.Time, lang OutputLanguage) string {
	newTranslator, ok := translators[LocaleTag(lang)]
	if !ok {
		newTranslator = en_US.New
	}
	return newTranslator().FmtDateFull(t)
}
