package gmail

// MessageID identifies a single Gmail message.
type MessageID string

// Query is a Gmail search query string, already formed
// (e.g. `-in:inbox has:nouserlabels -in:trash -in:spam`).
type Query struct {
	Raw string
}

// ListPage is one page of search results.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}
