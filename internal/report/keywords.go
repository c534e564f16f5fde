package report

import (
	"strings"

	"surveystat/domain/survey"
)

// keywordGroup is one fixed reasoning-pattern vocabulary scanned against the
// free-text justifications. Matching is descriptive only; no test runs on the
// prevalence rates.
type keywordGroup struct {
	Name  string
	Terms []string
}

// keywordGroups in report order. Terms are lowercase substrings, stemmed by
// hand where endings vary.
var keywordGroups = []keywordGroup{
	{
		Name: "responsibility_avoidance",
		Terms: []string{
			"not my decision", "not my call", "not my responsibility",
			"just following", "someone else", "management decided",
			"up to the company", "just doing my job",
		},
	},
	{
		Name: "manipulation_awareness",
		Terms: []string{
			"dark pattern", "manipulat", "deceiv", "deception",
			"mislead", "trick", "coerc", "exploit", "pressur",
		},
	},
	{
		Name: "user_advocacy",
		Terms: []string{
			"user trust", "transparen", "honest", "autonomy",
			"informed choice", "respect the user", "user's best interest",
			"user wellbeing", "user well-being",
		},
	},
}

// KeywordPrevalence reports how often any term of a group appears in each
// arm's justifications.
type KeywordPrevalence struct {
	Group string

	StandardHits  int
	StandardTexts int
	EthicsHits    int
	EthicsTexts   int
}

// StandardRate is the fraction of standard-arm texts containing the group.
func (k KeywordPrevalence) StandardRate() float64 {
	if k.StandardTexts == 0 {
		return 0
	}
	return float64(k.StandardHits) / float64(k.StandardTexts)
}

// EthicsRate is the fraction of ethics-arm texts containing the group.
func (k KeywordPrevalence) EthicsRate() float64 {
	if k.EthicsTexts == 0 {
		return 0
	}
	return float64(k.EthicsHits) / float64(k.EthicsTexts)
}

// ScanKeywords counts group prevalence per condition over non-empty
// justifications. A text counts at most once per group regardless of how many
// terms it contains.
func ScanKeywords(evals []survey.Evaluation, standard, ethics survey.Condition) []KeywordPrevalence {
	out := make([]KeywordPrevalence, len(keywordGroups))
	for i, g := range keywordGroups {
		out[i].Group = g.Name
	}

	for _, e := range evals {
		text := strings.ToLower(strings.TrimSpace(e.Justification))
		if text == "" {
			continue
		}

		switch e.Condition {
		case standard:
			for i, g := range keywordGroups {
				out[i].StandardTexts++
				if containsAnyTerm(text, g.Terms) {
					out[i].StandardHits++
				}
			}
		case ethics:
			for i, g := range keywordGroups {
				out[i].EthicsTexts++
				if containsAnyTerm(text, g.Terms) {
					out[i].EthicsHits++
				}
			}
		}
	}
	return out
}

func containsAnyTerm(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
