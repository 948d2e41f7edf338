// Package runtime adapts *gmail.Service to the small interface binsweep uses.
package runtime

import (
	"context"

	"google.golang.org/api/gmail/v1"

	gc "github.com/mkellner/binsweep/internal/gmail"
)

type googleClient struct{ svc *gmail.Service }

// NewGoogleAPIClient wraps a Gmail service in the narrow client interface.
func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, user string, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List(user).Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, err
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) Trash(ctx context.Context, user string, id gc.MessageID) error {
	_, err := g.svc.Users.Messages.Trash(user, string(id)).Context(ctx).Do()
	return err
}
