package npc

import "golang.org/x/text/language"

// supportedLanguages are the dialogue languages the engine can instruct
// the backend to use. English is the fallback for anything else.
var supportedLanguages = []language.Tag{
	language.English, // first entry is the matcher fallback
	language.Korean,
	language.Japanese,
	language.SimplifiedChinese,
	language.Spanish,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// ParseLanguage resolves a BCP 47 tag string ("ko", "zh-Hans", ...) to
// the closest supported dialogue language.
func ParseLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tag)
	return supportedLanguages[idx]
}

// LanguageInstruction returns the prompt instruction selecting the
// target dialogue language.
func LanguageInstruction(tag language.Tag) string {
	_, idx, _ := languageMatcher.Match(tag)
	switch supportedLanguages[idx] {
	case language.Korean:
		return "Respond only in Korean. Do not use any other language."
	case language.Japanese:
		return "Respond only in Japanese."
	case language.SimplifiedChinese:
		return "Respond only in Simplified Chinese."
	case language.Spanish:
		return "Respond only in Spanish."
	default:
		return "Respond only in English."
	}
}
