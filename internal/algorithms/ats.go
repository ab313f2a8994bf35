package algorithms

import (
	"math"
	"strings"
	"unicode"

	"cvbuilder_backend/internal/models"
)

// ATSResult - результат сравнения резюме с описанием вакансии
type ATSResult struct {
	Score           int      `json:"atsScore"`
	KeywordMatches  []string `json:"keywordMatches"`
	MissingKeywords []string `json:"missingKeywords"`
	TotalKeywords   int      `json:"totalKeywords"`
}

const (
	importantWeight = 2
	regularWeight   = 1
)

// CalculateATSScore считает долю ключевых слов вакансии, найденных в резюме (0-100).
// Ключевые слова из технического словаря весят вдвое больше остальных.
// Совпадение - вхождение подстроки, без стемминга.
func CalculateATSScore(cv *models.CV, jobDescription string) ATSResult {
	result := ATSResult{
		KeywordMatches:  []string{},
		MissingKeywords: []string{},
	}

	keywords := ExtractKeywords(jobDescription)
	if len(keywords) == 0 {
		return result
	}

	corpus := cvCorpus(cv)
	totalWeight, matchedWeight := 0, 0

	for _, kw := range keywords {
		w := regularWeight
		if IsImportantKeyword(kw) {
			w = importantWeight
		}
		totalWeight += w

		if strings.Contains(corpus, kw) {
			matchedWeight += w
			result.KeywordMatches = append(result.KeywordMatches, kw)
		} else {
			result.MissingKeywords = append(result.MissingKeywords, kw)
		}
	}

	result.TotalKeywords = len(keywords)
	result.Score = clampScore(int(math.Round(100 * float64(matchedWeight) / float64(totalWeight))))
	return result
}

// ExtractKeywords разбивает текст на уникальные ключевые слова в порядке появления
func ExtractKeywords(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.')
	})

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		// точка в конце - пунктуация, в начале - часть имени (.net)
		t = strings.TrimRight(t, ".")
		if strings.HasPrefix(t, ".") && !IsImportantKeyword(t) {
			t = strings.TrimLeft(t, ".")
		}
		if len(t) < 2 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		keywords = append(keywords, t)
	}
	return keywords
}

// IsImportantKeyword - входит ли слово в технический словарь
func IsImportantKeyword(kw string) bool {
	_, ok := importantKeywords[kw]
	return ok
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// cvCorpus собирает весь текст резюме в одну строку в нижнем регистре
func cvCorpus(cv *models.CV) string {
	var b strings.Builder
	add := func(parts ...string) {
		for _, p := range parts {
			if p == "" {
				continue
			}
			b.WriteString(strings.ToLower(p))
			b.WriteByte(' ')
		}
	}

	add(cv.Title, cv.Summary)
	pi := cv.PersonalInfo.Data()
	add(pi.JobTitle)

	for _, w := range cv.WorkExperience {
		add(w.Position, w.Company, w.Description)
		add(w.Achievements...)
	}
	for _, e := range cv.Education {
		add(e.Degree, e.Field, e.Institution, e.Description)
	}
	for _, s := range cv.Skills {
		add(s.Name, s.Category)
	}
	for _, p := range cv.Projects {
		add(p.Name, p.Description)
		add(p.Technologies...)
	}
	for _, c := range cv.Certifications {
		add(c.Name, c.Issuer)
	}
	for _, l := range cv.Languages {
		add(l.Name)
	}
	for _, s := range cv.CustomSections {
		add(s.Title)
		for _, it := range s.Items {
			add(it.Title, it.Subtitle, it.Description)
		}
	}
	return b.String()
}
