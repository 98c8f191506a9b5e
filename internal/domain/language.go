package domain

import "strings"

// Language is a conversation's preferred language. The zero value means unset.
type Language string

const (
	LanguageUnset   Language = ""
	LanguageEnglish Language = "en"
	LanguageUrdu    Language = "ur"
)

// ParseLanguage maps an ISO-639-1 code to a supported Language.
func ParseLanguage(code string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case LanguageEnglish:
		return LanguageEnglish, true
	case LanguageUrdu:
		return LanguageUrdu, true
	default:
		return LanguageUnset, false
	}
}

// OrDefault returns English when the language is unset.
func (l Language) OrDefault() Language {
	if l == LanguageUnset {
		return LanguageEnglish
	}
	return l
}
