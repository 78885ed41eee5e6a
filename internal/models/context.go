package models

// ContextItem is a piece of user-mentioned material (a document, a web page,
// a selected snippet) supplied alongside a skill invocation.
type ContextItem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content"`
}
