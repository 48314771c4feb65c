package youdao

import (
	"sort"

	"github.com/samber/lo"

	"voxlate/internal/domain"
)

// languageCodes maps UI language tags to the service's language codes.
var languageCodes = map[string]string{
	"en-US": "en",
	"es-ES": "es",
	"fr-FR": "fr",
	"de-DE": "de",
	"ja-JP": "ja",
	"zh-CN": "zh-CHS",
	"ko-KR": "ko",
	"ru-RU": "ru",
	"pt-PT": "pt",
	"it-IT": "it",
	"ar-SA": "ar",
	"nl-NL": "nl",
	"th-TH": "th",
	"vi-VN": "vi",
	"pl-PL": "pl",
	"da-DK": "da",
	"fi-FI": "fi",
	"sv-SE": "sv",
	"tr-TR": "tr",
	"hi-IN": "hi",
}

var languageNames = map[string]string{
	"en-US": "English",
	"zh-CN": "中文",
	"ja-JP": "日本語",
	"ko-KR": "한국어",
	"fr-FR": "Français",
	"es-ES": "Español",
	"de-DE": "Deutsch",
	"ru-RU": "Русский",
	"pt-PT": "Português",
	"it-IT": "Italiano",
	"ar-SA": "العربية",
	"nl-NL": "Nederlands",
	"pl-PL": "Polski",
	"da-DK": "Dansk",
	"fi-FI": "Suomi",
	"sv-SE": "Svenska",
	"th-TH": "ไทย",
	"vi-VN": "Tiếng Việt",
	"tr-TR": "Türkçe",
	"hi-IN": "हिन्दी",
}

// MapLanguageCode returns the service code for a tag; unknown tags pass through.
func MapLanguageCode(tag string) string {
	if code, ok := languageCodes[tag]; ok {
		return code
	}
	return tag
}

// SupportedLanguages returns the language catalog sorted by tag.
func SupportedLanguages() []domain.Language {
	languages := lo.MapToSlice(languageNames, func(tag string, name string) domain.Language {
		return domain.Language{Tag: tag, Name: name}
	})
	sort.Slice(languages, func(i, j int) bool { return languages[i].Tag < languages[j].Tag })
	return languages
}

// IsSupported reports whether tag is in the catalog.
func IsSupported(tag string) bool {
	_, ok := languageNames[tag]
	return ok
}
