package tesseract

import "strings"

var languageCodes = map[string]string{
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
	"pl": "pol",
	"ru": "rus",
	"uk": "ukr",
	"ar": "ara",
	"he": "heb",
	"hi": "hin",
	"ja": "jpn",
	"ko": "kor",
	"zh": "chi_sim",
	"tr": "tur",
	"sv": "swe",
}

// NormalizeLanguage maps ISO 639-1 codes to Tesseract language names.
// Multiple languages are joined with "+". Empty input means English.
func NormalizeLanguage(lang string) string {
	parts := splitLanguages(lang)
	for i, p := range parts {
		if code, ok := languageCodes[p]; ok {
			parts[i] = code
		}
	}
	return strings.Join(parts, "+")
}

func splitLanguages(lang string) []string {
	var out []string
	for p := range strings.SplitSeq(strings.ToLower(lang), "+") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"eng"}
	}
	return out
}
