package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	muted lipgloss.Style
	box   lipgloss.Style
}

// newStyles binds styles to w so color is dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		label: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFB74D")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		muted: r.NewStyle().Foreground(lipgloss.Color("#888888")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1),
	}
}

func (s styles) field(name, value string) string {
	if value == "" {
		value = s.muted.Render("N/A")
	}
	return s.label.Render(name+":") + " " + value
}

func (s styles) status(st ticket.Status) string {
	switch st {
	case ticket.StatusApproved:
		return s.ok.Render(string(st))
	case ticket.StatusEscalated:
		return s.warn.Render(string(st))
	default:
		return s.bad.Render(string(st))
	}
}

// renderResult prints the final results block for a finished run.
func renderResult(w io.Writer, rr *ticket.RunResult, escalationFile string) {
	s := newStyles(w)

	lines := []string{
		s.title.Render("FINAL RESULTS"),
		"",
		s.field("Ticket ID", rr.ID),
		s.field("Subject", rr.Ticket.Subject),
		s.field("Description", rr.Ticket.Description),
		s.field("Category", string(rr.Category)),
		s.field("Context", rr.Retrieval.Summary),
		s.field("Final Draft", rr.FinalDraft),
		s.field("Review Status", string(rr.Review.Verdict)),
		s.field("Feedback", rr.Review.Feedback),
		s.field("Total Attempts", fmt.Sprintf("%d", rr.AttemptCount)),
		s.field("Status", s.status(rr.Status)),
	}

	switch {
	case rr.Status == ticket.StatusEscalated && rr.EscalationLogged:
		lines = append(lines,
			s.field("Escalation", "logged for human review"),
			s.field("Escalation File", escalationFile),
		)
	case rr.Status == ticket.StatusEscalated:
		lines = append(lines, s.field("Escalation", s.bad.Render("not recorded")))
	}
	if rr.Error != "" {
		lines = append(lines, s.field("Error", s.bad.Render(rr.Error)))
	}

	lines = append(lines, "", s.muted.Render(fmt.Sprintf(
		"%d LLM calls, %d tokens in, %d tokens out, %.1fs",
		rr.LLMCalls, rr.TokensIn, rr.TokensOut, rr.Duration,
	)))

	fmt.Fprintln(w, s.box.Render(strings.Join(lines, "\n")))
}

// renderRetrieval prints ranked documents for a retrieval preview.
func renderRetrieval(w io.Writer, category ticket.Category, matched bool, res ticket.RetrievalResult) {
	s := newStyles(w)

	head := s.title.Render(fmt.Sprintf("Category: %s", category))
	if !matched {
		head += " " + s.muted.Render("(unrecognized, using General)")
	}
	fmt.Fprintln(w, head)
	fmt.Fprintln(w, res.Summary)

	scores := make(map[string]int, len(res.Scores))
	for _, sd := range res.Scores {
		scores[sd.Title] = sd.Score
	}
	for i, d := range res.Documents {
		score := s.muted.Render("fallback")
		if sc, ok := scores[d.Title]; ok {
			score = fmt.Sprintf("score %d", sc)
		}
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, s.label.Render(d.Title), score)
	}
}
