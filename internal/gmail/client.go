package gmail

import "context"

// Client is the narrow Gmail surface required by binsweep.
type Client interface {
	List(ctx context.Context, user string, q Query, pageToken string, pageSize int) (ListPage, error)
	Trash(ctx context.Context, user string, id MessageID) error
}
