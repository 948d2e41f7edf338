// Package trash finds messages matching a search query and moves them to
// Trash: one paginated list pass, then one trash call per message with
// throttling and bounded retry on transient API errors.
package trash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"

	gc "github.com/mkellner/binsweep/internal/gmail"
	"github.com/mkellner/binsweep/internal/rate"
)

// DefaultQuery matches archived mail with no user label that is not already
// in Trash or Spam.
const DefaultQuery = "-in:inbox has:nouserlabels -in:trash -in:spam"

const (
	maxAttempts    = 5
	initialBackoff = 500 * time.Millisecond
)

// Spec describes one run.
type Spec struct {
	User      string // Gmail userId, usually "me"
	Query     string
	Max       int // 0 means unlimited
	DryRun    bool
	BatchSize int // progress-report chunk size
	PageSize  int // list page size (<=500)
}

// Report summarizes what a run did (or, for a dry run, would do).
type Report struct {
	Matched int
	Trashed int
	// Skipped counts messages abandoned after exhausting transient retries.
	Skipped int
	DryRun  bool
}

// errRetriesExhausted marks a message given up on after maxAttempts
// transient failures. The run skips it and moves on.
var errRetriesExhausted = errors.New("retries exhausted")

// Service moves matching messages to Trash.
type Service struct {
	Client gc.Client
	Rate   rate.Limiter
	Log    *slog.Logger
	// Sleep is called for retry backoff; tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires a service with the default backoff sleep.
func NewService(client gc.Client, limiter rate.Limiter, log *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.NoLimit{}
	}
	return &Service{
		Client: client,
		Rate:   limiter,
		Log:    log,
		Sleep:  sleepCtx,
	}
}

// Run lists all matching message IDs and trashes them. The returned report is
// valid even for dry runs, where Trashed counts what would have been trashed.
func (s *Service) Run(ctx context.Context, spec Spec) (Report, error) {
	if spec.Query == "" {
		spec.Query = DefaultQuery
	}
	if spec.User == "" {
		spec.User = "me"
	}
	if spec.BatchSize <= 0 {
		spec.BatchSize = 100
	}
	if spec.PageSize <= 0 {
		spec.PageSize = 500
	}

	s.Log.Info("searching", "query", spec.Query, "user", spec.User)
	ids, err := s.collect(ctx, spec)
	if err != nil {
		return Report{}, fmt.Errorf("list messages: %w", err)
	}
	s.Log.Info("matched messages", "count", len(ids))

	rep := Report{Matched: len(ids), DryRun: spec.DryRun}
	if len(ids) == 0 {
		return rep, nil
	}
	if spec.DryRun {
		rep.Trashed = len(ids)
		s.Log.Info("dry run, nothing changed", "would_trash", len(ids))
		return rep, nil
	}

	s.Log.Info("trashing messages, reversible until Trash empties")
	for i := 0; i < len(ids); i += spec.BatchSize {
		j := min(i+spec.BatchSize, len(ids))
		for _, id := range ids[i:j] {
			if err := s.trashOne(ctx, spec.User, id); err != nil {
				if errors.Is(err, errRetriesExhausted) {
					s.Log.Error("skipping message", "id", id, "error", err)
					rep.Skipped++
					continue
				}
				return rep, fmt.Errorf("trash message %s: %w", id, err)
			}
			rep.Trashed++
		}
		s.Log.Info("processed", "done", j, "total", len(ids))
	}
	return rep, nil
}

// collect paginates the search until the page token runs out or Max IDs have
// been gathered. Each ID appears at most once in the result.
func (s *Service) collect(ctx context.Context, spec Spec) ([]gc.MessageID, error) {
	var ids []gc.MessageID
	pageToken := ""
	for {
		if err := s.Rate.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, spec.User, gc.Query{Raw: spec.Query}, pageToken, spec.PageSize)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.IDs...)
		if spec.Max > 0 && len(ids) >= spec.Max {
			return ids[:spec.Max], nil
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

// trashOne retries transient API errors with exponential backoff and gives
// every other error straight back.
func (s *Service) trashOne(ctx context.Context, user string, id gc.MessageID) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff << (attempt - 1)
			s.Log.Warn("transient error, backing off", "id", id, "attempt", attempt, "backoff", backoff)
			if err := s.Sleep(ctx, backoff); err != nil {
				return err
			}
		}
		if err := s.Rate.Wait(ctx); err != nil {
			return err
		}
		err := s.Client.Trash(ctx, user, id)
		if err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", errRetriesExhausted, maxAttempts, lastErr)
}

// transient reports whether err is a rate-limit or server-side Gmail error
// worth retrying.
func transient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 503:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff canceled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
