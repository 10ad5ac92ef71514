package models

import "strings"

// Query is one chat request as seen by the RAG pipeline. SessionID may be
// empty for ephemeral, cross-session queries.
type Query struct {
	Text          string
	SessionID     string
	IncludeImages bool
}

// RetrievalResult holds the similarity-ranked chunk texts for a query, most
// similar first.
type RetrievalResult struct {
	Texts []string
	Found bool
}

// Context assembles the retrieved texts into the context string fed to the
// planner and synthesizer, falling back to the sentinel when nothing was
// retrieved.
func (r RetrievalResult) Context() string {
	if !r.Found {
		return NoContextSentinel
	}
	return strings.Join(r.Texts, "\n")
}

// ImageQuery is one entry of a visual query plan.
type ImageQuery struct {
	SearchText     string
	RelevanceLabel string
}

// ImageResult is one resolved image candidate, labelled with the plan
// entry's relevance note.
type ImageResult struct {
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail"`
	Title        string `json:"title"`
	ContextLabel string `json:"context_label"`
}

// AnswerEnvelope is the unit returned to the caller of the chat operation.
// Images is never nil so the JSON form always carries an array.
type AnswerEnvelope struct {
	Answer string        `json:"answer"`
	Images []ImageResult `json:"images"`
}
