package ticket

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are part of a customer support desk. Follow the output format you are given exactly.`

// buildClassifyPrompt asks for a single category label on the first line.
func buildClassifyPrompt(t Ticket) string {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf(`Classify the following support ticket into one of these categories: %s.
Subject: %s
Description: %s
Category:`,
		strings.Join(names, ", "),
		t.Subject,
		t.Description,
	)
}

// buildDraftPrompt asks for a customer-facing reply grounded on the retrieved documents.
func buildDraftPrompt(t Ticket, c Category, docs []Document, feedback string, attempt int) string {
	return fmt.Sprintf(`You are a professional support agent. Read the support ticket below and the relevant information provided.
Draft a clear, empathetic, and actionable response for the customer.
Directly address the user's issue, reference the relevant info, and provide step-by-step guidance or next actions.
%s
Do not make promises you cannot keep.
Category: %s
Subject: %s
Description: %s
Relevant Info: %s
Previous Reviewer Feedback: %s
Attempt: %d

Customer Response:`,
		categoryGuidance(c),
		c,
		t.Subject,
		t.Description,
		joinContents(docs),
		feedback,
		attempt,
	)
}

// buildReviewPrompt asks for an approved/rejected verdict with feedback.
func buildReviewPrompt(t Ticket, c Category, docs []Document, draft string, attempt int) string {
	return fmt.Sprintf(`You are a support QA reviewer. Read the support ticket, relevant info, and the draft response below.
Evaluate if the response is accurate, helpful, and compliant with support guidelines.
If approved, reply with 'approved' and a short comment. If rejected, reply with 'rejected' and specific feedback for revision.
Category: %s
Subject: %s
Description: %s
Relevant Info: %s
Draft Response: %s
Attempt: %d

Review Result:`,
		c,
		t.Subject,
		t.Description,
		joinContents(docs),
		draft,
		attempt,
	)
}

func categoryGuidance(c Category) string {
	switch c {
	case CategorySecurity:
		return "The issue is security-related: advise on immediate steps to protect the account."
	case CategoryBilling:
		return "The issue is about billing: explain the refund and dispute process where relevant."
	case CategoryTechnical:
		return "The issue is technical: offer concrete troubleshooting steps."
	default:
		return "Answer the inquiry clearly."
	}
}

func joinContents(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "; ")
}

// firstLine returns the first line of a classifier response.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// parseReview classifies a reviewer response. Any response mentioning
// "approved" is an approval; everything else is a rejection carrying the
// response as feedback.
func parseReview(text string) Review {
	feedback := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(feedback, "approved") {
		return Review{Verdict: VerdictApproved, Feedback: feedback}
	}
	return Review{Verdict: VerdictRejected, Feedback: feedback}
}
