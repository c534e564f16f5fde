package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"surveystat/domain/stats"
	"surveystat/domain/survey"
)

// BriefData is everything the analysis brief reports on.
type BriefData struct {
	Manifest *stats.RunManifest

	Standard survey.Condition
	Ethics   survey.Condition

	// Per-condition descriptives over participant-level values.
	TendencyDesc  []survey.Descriptives
	RejectionDesc []survey.Descriptives

	Results  []stats.StimulusTestResult
	Keywords []KeywordPrevalence

	Alpha float64
}

// GenerateBrief renders the markdown analysis brief: hypothesis framing,
// descriptives, the confirmatory verdict per correction method, and the
// exploratory per-stimulus table.
func GenerateBrief(data BriefData) string {
	var b strings.Builder

	b.WriteString("# Condition Comparison Brief\n\n")

	writeFraming(&b, data)
	writeDescriptives(&b, data)
	writeAggregateVerdicts(&b, data)
	writeStimulusTable(&b, data)
	writeKeywordSection(&b, data)
	writeAuditSection(&b, data)

	return b.String()
}

// RenderBriefHTML converts the markdown brief into a standalone HTML page.
func RenderBriefHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Condition Comparison Brief",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// WriteBrief writes brief.md and its HTML rendering next to the tables.
func (w *TableWriter) WriteBrief(md string) error {
	if err := w.writeFile("brief.md", md); err != nil {
		return err
	}
	return w.writeFile("brief.html", string(RenderBriefHTML(md)))
}

func writeFraming(b *strings.Builder, data BriefData) {
	b.WriteString("## Hypothesis\n\n")
	fmt.Fprintf(b,
		"Participants answering the ethics-augmented questionnaire (%s) are "+
			"expected to judge the stimuli more conservatively than the standard "+
			"arm (%s): lower release tendency and a higher rejection rate. "+
			"One-tailed p-values encode this direction; two-tailed values are "+
			"reported alongside.\n\n",
		data.Ethics, data.Standard)
	fmt.Fprintf(b, "Significance level: %.2f per correction method.\n\n", data.Alpha)
}

func writeDescriptives(b *strings.Builder, data BriefData) {
	b.WriteString("## Participant-Level Descriptives\n\n")

	b.WriteString("| Measure | Condition | n | Mean | SD | SE |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, d := range data.TendencyDesc {
		fmt.Fprintf(b, "| tendency | %s | %d | %.3f | %.3f | %.3f |\n",
			d.Condition, d.N, d.Mean, d.StdDev, d.StdErr)
	}
	for _, d := range data.RejectionDesc {
		fmt.Fprintf(b, "| rejection rate | %s | %d | %.3f | %.3f | %.3f |\n",
			d.Condition, d.N, d.Mean, d.StdDev, d.StdErr)
	}
	b.WriteString("\n")
}

func writeAggregateVerdicts(b *strings.Builder, data BriefData) {
	b.WriteString("## Confirmatory Result (participant-level means)\n\n")

	found := false
	for _, r := range data.Results {
		if !r.Aggregate {
			continue
		}
		found = true
		if r.Skipped {
			fmt.Fprintf(b, "- **%s**: not testable (%s)\n", r.Outcome, r.SkipReason)
			continue
		}
		direction := "opposite to"
		if r.DirectionMatched {
			direction = "in"
		}
		verdict := "not significant"
		if r.OneTailedP < data.Alpha {
			verdict = "significant"
		}
		fmt.Fprintf(b,
			"- **%s** (%s): statistic %.4f, one-tailed p %.4f, effect %.4f %s, "+
				"%s the expected direction, %s at %.2f. Uncorrected: single "+
				"pre-registered test.\n",
			r.Outcome, r.Method, r.Statistic, r.OneTailedP, r.EffectSize,
			r.EffectUnit, direction, verdict, data.Alpha)
	}
	if !found {
		b.WriteString("No aggregate results were produced.\n")
	}
	b.WriteString("\n")
}

func writeStimulusTable(b *strings.Builder, data BriefData) {
	b.WriteString("## Exploratory Per-Stimulus Results\n\n")
	b.WriteString("Adjusted p-values are reported per correction method over the\n")
	b.WriteString("per-outcome family; no single collapsed verdict is offered.\n\n")

	b.WriteString("| Stimulus | Outcome | Method | One-tailed p | Holm | Bonferroni | BH |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range data.Results {
		if r.Aggregate {
			continue
		}
		if r.Skipped {
			fmt.Fprintf(b, "| %s | %s | skipped (%s) | | | | |\n",
				r.Stimulus, r.Outcome, r.SkipReason)
			continue
		}
		fmt.Fprintf(b, "| %s | %s | %s | %.4f | %s | %s | %s |\n",
			r.Stimulus, r.Outcome, r.Method, r.OneTailedP,
			briefAdjusted(r, stats.CorrectionHolm),
			briefAdjusted(r, stats.CorrectionBonferroni),
			briefAdjusted(r, stats.CorrectionBH))
	}
	b.WriteString("\n")
}

func writeKeywordSection(b *strings.Builder, data BriefData) {
	if len(data.Keywords) == 0 {
		return
	}
	b.WriteString("## Reasoning-Pattern Prevalence\n\n")
	b.WriteString("Fraction of non-empty justifications containing each vocabulary.\n")
	b.WriteString("Descriptive only.\n\n")

	fmt.Fprintf(b, "| Pattern | %s | %s |\n", data.Standard, data.Ethics)
	b.WriteString("|---|---|---|\n")
	for _, k := range data.Keywords {
		fmt.Fprintf(b, "| %s | %.3f (%d/%d) | %.3f (%d/%d) |\n",
			k.Group,
			k.StandardRate(), k.StandardHits, k.StandardTexts,
			k.EthicsRate(), k.EthicsHits, k.EthicsTexts)
	}
	b.WriteString("\n")
}

func writeAuditSection(b *strings.Builder, data BriefData) {
	m := data.Manifest
	if m == nil {
		return
	}
	b.WriteString("## Run Audit\n\n")
	fmt.Fprintf(b, "- Input fingerprint: `%s`\n", m.InputHash.Short())
	fmt.Fprintf(b, "- Rows read: %d, valid: %d\n", m.RowsRead, m.RowsValid)
	fmt.Fprintf(b, "- Participants: %d (unknown condition: %d, excluded by screening: %d)\n",
		m.Participants, m.Unknown, m.Excluded)
	fmt.Fprintf(b, "- Evaluations: %d\n", m.EvaluationCount)
	fmt.Fprintf(b, "- Tests executed: %d, skipped: %d\n", m.TestsExecuted, m.TestsSkipped)
}

func briefAdjusted(r stats.StimulusTestResult, method stats.CorrectionMethod) string {
	p, ok := r.Adjusted[method]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.4f", p)
}
