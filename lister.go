package ustore

import (
	"context"
	"io"

	"github.com/mwantia/ustore/backend"
	"github.com/mwantia/ustore/data"
)

// Lister iterates lazily over the entries under a prefix, pulling pages
// from the backend on demand. Next returns io.EOF once exhausted.
//
// A Lister is not safe for concurrent use; create one per consumer.
type Lister struct {
	head   backend.Backend
	prefix string
	opts   backend.ListOptions

	page      *backend.Page
	index     int
	exhausted bool
}

// Next returns the next entry, fetching the next page when the current
// one is drained.
func (l *Lister) Next(ctx context.Context) (*data.Entry, error) {
	for {
		if l.page != nil && l.index < len(l.page.Entries) {
			entry := l.page.Entries[l.index]
			l.index++
			return entry, nil
		}

		if l.exhausted {
			return nil, io.EOF
		}

		page, err := l.head.List(ctx, l.prefix, l.opts)
		if err != nil {
			return nil, err
		}

		l.page = page
		l.index = 0
		l.opts.Token = page.Token
		if page.Token == "" {
			l.exhausted = true
		}
	}
}

// Token returns the continuation token resuming the listing after the
// last fetched page. Empty once the listing is exhausted.
func (l *Lister) Token() string {
	return l.opts.Token
}
