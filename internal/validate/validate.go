// Package validate holds the deterministic field checks used before any
// language-service call. Every function is total: it never panics and reports
// "no value" through its boolean result.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind names a conversation field that can be validated or extracted.
type Kind string

const (
	KindPhone    Kind = "phone"
	KindQuantity Kind = "quantity"
	KindName     Kind = "name"
	KindAddress  Kind = "address"
)

const (
	MinQuantity = 1
	MaxQuantity = 100

	maxNameRunes    = 100
	minAddressRunes = 5
	maxAddressRunes = 500

	countryCode = "+92"
)

var (
	phoneNoise         = regexp.MustCompile(`[\s\-().]`)
	localMobile        = regexp.MustCompile(`^0(3\d{9})$`)
	internationalPhone = regexp.MustCompile(`^\+?92(3\d{9})$`)
)

// quantityWords maps spoken or written number words in English, Romanized Urdu
// and Urdu script to their value.
var quantityWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,

	"ek": 1, "aik": 1, "do": 2, "teen": 3, "tin": 3, "char": 4,
	"paanch": 5, "panch": 5, "chay": 6, "che": 6, "saat": 7,
	"aath": 8, "nau": 9, "no": 9, "das": 10,

	"ایک": 1, "دو": 2, "تین": 3, "چار": 4, "پانچ": 5,
	"چھ": 6, "سات": 7, "آٹھ": 8, "نو": 9, "دس": 10,
}

// Phone normalizes a Pakistani mobile number to +92XXXXXXXXXX.
// Accepted forms: 03XXXXXXXXX, 923XXXXXXXXX and +923XXXXXXXXX with any spaces,
// dashes, dots or parentheses in between.
func Phone(raw string) (string, bool) {
	cleaned := phoneNoise.ReplaceAllString(toASCIIDigits(raw), "")
	if cleaned == "" {
		return "", false
	}

	if m := localMobile.FindStringSubmatch(cleaned); m != nil {
		return countryCode + m[1], true
	}
	if m := internationalPhone.FindStringSubmatch(cleaned); m != nil {
		return countryCode + m[1], true
	}

	return "", false
}

// Quantity parses an order quantity in [MinQuantity, MaxQuantity].
// A leading decimal integer wins ("5 units" is 5); otherwise the whole input
// must be a known number word.
func Quantity(raw string) (int, bool) {
	cleaned := strings.TrimSpace(toASCIIDigits(raw))
	if cleaned == "" {
		return 0, false
	}

	if n, ok := leadingInt(cleaned); ok {
		return n, n >= MinQuantity && n <= MaxQuantity
	}

	if n, ok := quantityWords[strings.ToLower(cleaned)]; ok {
		return n, true
	}

	return 0, false
}

// Name accepts 1-100 characters that contain at least one Latin or Arabic-script letter.
func Name(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(cleaned)
	if n < 1 || n > maxNameRunes {
		return "", false
	}

	for _, r := range cleaned {
		if isLatinLetter(r) || unicode.In(r, unicode.Arabic) && unicode.IsLetter(r) {
			return cleaned, true
		}
	}

	return "", false
}

// Address accepts 5-500 characters. Content is not inspected.
func Address(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(cleaned)
	if n < minAddressRunes || n > maxAddressRunes {
		return "", false
	}

	return cleaned, true
}

// Field dispatches to the validator for kind and returns the normalized value
// in its string form (quantities as decimal digits).
func Field(kind Kind, raw string) (string, bool) {
	switch kind {
	case KindPhone:
		return Phone(raw)
	case KindQuantity:
		n, ok := Quantity(raw)
		if !ok {
			return "", false
		}
		return strconv.Itoa(n), true
	case KindName:
		return Name(raw)
	case KindAddress:
		return Address(raw)
	default:
		return "", false
	}
}

func leadingInt(s string) (int, bool) {
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow: far outside any accepted range
		return MaxQuantity + 1, true
	}

	return n, true
}

// toASCIIDigits rewrites Extended Arabic-Indic and Arabic-Indic digits as ASCII.
func toASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

func isLatinLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
