package brain

import "strings"

// fallbackPattern — ключевое слово и варианты для него.
type fallbackPattern struct {
	keyword string
	options []string
}

var (
	languageOptions = []string{"JavaScript", "Python", "Java", "C++"}
	socialOptions   = []string{"Instagram", "Twitter/X", "LinkedIn", "TikTok"}
	timeOptions     = []string{"Sabah", "Öğle", "Akşam", "Gece"}
)

// Порядок важен: первое совпадение выигрывает.
var fallbackPatterns = []fallbackPattern{
	{"programming", languageOptions},
	{"programlama", languageOptions},
	{"social media", socialOptions},
	{"sosyal medya", socialOptions},
	{"time", timeOptions},
	{"saat", timeOptions},
	{"zaman", timeOptions},
}

var (
	preferenceKeywords = []string{"best", "favorite", "en iyi", "favori"}
	yesNoKeywords      = []string{"do you", "would you", "yapıyor musun", "ister misin"}
)

// FallbackOptions подбирает варианты по ключевым словам вопроса.
// Всегда возвращает от 2 до 4 вариантов.
func FallbackOptions(question string) []string {
	q := strings.ToLower(question)

	for _, p := range fallbackPatterns {
		if strings.Contains(q, p.keyword) {
			return clone(p.options)
		}
	}

	switch {
	case containsAny(q, preferenceKeywords):
		return []string{"Seçenek A", "Seçenek B", "Seçenek C", "Diğer"}
	case containsAny(q, yesNoKeywords):
		return []string{"Evet", "Hayır", "Belki", "Emin değilim"}
	default:
		return []string{"Evet", "Hayır"}
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
