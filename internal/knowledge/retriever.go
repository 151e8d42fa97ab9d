package knowledge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

const (
	// TopK bounds the documents returned per retrieval.
	TopK = 3
	// FallbackK is how many catalog-order documents are used when nothing scores.
	FallbackK = 2

	keywordWeight = 2
)

// Retriever ranks a category's documents against ticket text.
type Retriever struct {
	store *Store
}

// NewRetriever creates a Retriever over store.
func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve scores every document of the category, keeps those with a
// positive score ordered by score (ties keep catalog order) and returns at
// most TopK of them. When nothing scores, the first FallbackK documents of the
// category are returned instead.
func (r *Retriever) Retrieve(category ticket.Category, query string) ticket.RetrievalResult {
	candidates := r.store.Lookup(category)
	terms := tokenSet(query)

	scored := make([]ticket.ScoredDocument, 0, len(candidates))
	for _, d := range candidates {
		if s := Score(terms, d); s > 0 {
			scored = append(scored, ticket.ScoredDocument{Document: d, Title: d.Title, Score: s})
		}
	}
	slices.SortStableFunc(scored, func(a, b ticket.ScoredDocument) int {
		return b.Score - a.Score
	})
	if len(scored) > TopK {
		scored = scored[:TopK]
	}

	res := ticket.RetrievalResult{Scores: scored}
	if len(scored) == 0 {
		res.Documents = candidates[:min(FallbackK, len(candidates))]
		res.Fallback = len(res.Documents) > 0
	} else {
		res.Documents = make([]ticket.Document, 0, len(scored))
		for _, sd := range scored {
			res.Documents = append(res.Documents, sd.Document)
		}
	}
	res.Summary = summarize(category, res.Documents)
	return res
}

// Score weighs curated keyword hits double over raw content hits. Both are
// counted over distinct query terms.
func Score(terms map[string]struct{}, d ticket.Document) int {
	keywords := make(map[string]struct{}, len(d.Keywords))
	for _, k := range d.Keywords {
		keywords[strings.ToLower(k)] = struct{}{}
	}
	content := tokenSet(d.Content)

	kwHits, contentHits := 0, 0
	for t := range terms {
		if _, ok := keywords[t]; ok {
			kwHits++
		}
		if _, ok := content[t]; ok {
			contentHits++
		}
	}
	return keywordWeight*kwHits + contentHits
}

// tokenSet returns the distinct lowercase whitespace-delimited terms of text.
func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func summarize(category ticket.Category, docs []ticket.Document) string {
	head := fmt.Sprintf("Retrieved %d relevant documents for category '%s'", len(docs), category.Key())
	if len(docs) == 0 {
		return head
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return head + ": " + strings.Join(parts, "; ")
}
