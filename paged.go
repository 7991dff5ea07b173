package ldap

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// defaultPageThreshold bounds the accumulation buffer when no page size is
// configured.
const defaultPageThreshold = 500

// SearchPage is one delivered chunk of a paged user search.
type SearchPage struct {
	// Entries are the normalized entries of this chunk.
	Entries []Entry
	// Last marks the final chunk of the stream. Nothing follows it.
	Last bool

	next func()
}

// HasMore reports whether the stream is suspended waiting for Next. Chunks
// flushed for buffer overflow protection return false even though more
// entries follow; only server page boundaries are pacing points.
func (p *SearchPage) HasMore() bool {
	return p.next != nil
}

// Next requests the next server page. The stream — and the connection's
// idle countdown — stays suspended until it is called. Calling it twice is
// harmless, and on chunks without a continuation it is a no-op.
func (p *SearchPage) Next() {
	if p.next != nil {
		p.next()
	}
}

// PageHandler consumes a paged user search. Pages arrive in order on the
// stream's goroutine; a terminal failure arrives exactly once as err with a
// nil page, and nothing follows it.
type PageHandler func(page *SearchPage, err error)

// SearchUsersPaged streams every entry matching the configured user filters
// in bounded chunks, pacing server-side paging by the caller's continuation
// calls. A caller that stops invoking Next suspends the stream indefinitely
// without releasing the server-side cursor; use SearchUsersPagedContext with
// a cancelable context to bound that risk.
func (l *LDAP) SearchUsersPaged(username string, handler PageHandler) {
	l.SearchUsersPagedContext(context.Background(), username, handler)
}

// SearchUsersPagedContext is SearchUsersPaged with a caller-supplied
// context. Cancelling the context while the stream waits on a continuation
// ends the stream with one error delivery.
func (l *LDAP) SearchUsersPagedContext(ctx context.Context, username string, handler PageHandler) {
	if handler == nil {
		l.logSearch.Error("page_handler_missing",
			slog.String("operation", "search_users_paged"))
		return
	}
	l.logSearch.Info("paged_user_search_requested",
		slog.String("username", username))
	params := l.userSearchParams(username)
	go l.runPagedSearch(ctx, "search_users_paged", params, handler)
}

// runPagedSearch drives the paging protocol: accumulate entries, flush at
// the internal threshold for overflow protection, flush with a continuation
// at each server page boundary, and flush a final page at stream end. The
// idle countdown is cleared before every delivery and restored by the
// caller's Next call, never while the caller still holds a page.
func (l *LDAP) runPagedSearch(ctx context.Context, op string, params SearchParams, handler PageHandler) {
	server := l.config.serverAddress()
	start := time.Now()

	conn, gate, gen, err := l.session()
	if err != nil {
		handler(nil, searchSetupError(op, server, err))
		return
	}
	if err := l.ensureBound(ctx, conn, gate, gen); err != nil {
		handler(nil, err)
		return
	}
	params = l.applyBeforeSearch(ctx, params)

	scope, err := searchScope(params.Options.Scope)
	if err != nil {
		handler(nil, searchSetupError(op, server, err))
		return
	}

	pageSize := l.config.SearchPageSize
	threshold := pageSize * 2
	if threshold <= 0 {
		threshold = defaultPageThreshold
	}
	var paging *ldap.ControlPaging
	if pageSize > 0 {
		paging = ldap.NewControlPaging(uint32(pageSize))
	}

	l.logSearch.Debug("paged_search_started",
		slog.String("operation", op),
		slog.String("base_dn", params.BaseDN),
		slog.String("filter", params.Options.Filter),
		slog.Int("page_size", pageSize),
		slog.Int("flush_threshold", threshold))

	var (
		buffer = make([]Entry, 0, threshold)
		pages  int
		total  int
	)
	resume := make(chan struct{}, 1)

	deliver := func(page *SearchPage) {
		l.clearIdle(gen)
		pages++
		total += len(page.Entries)
		l.logSearch.Debug("page_delivered",
			slog.Int("page", pages),
			slog.Int("entry_count", len(page.Entries)),
			slog.Bool("last", page.Last),
			slog.Bool("continuation", page.next != nil))
		handler(page, nil)
	}

	for {
		var controls []ldap.Control
		if paging != nil {
			controls = []ldap.Control{paging}
		}
		req := ldap.NewSearchRequest(
			params.BaseDN,
			scope,
			ldap.NeverDerefAliases,
			params.Options.SizeLimit,
			0,
			false,
			params.Options.Filter,
			params.Options.Attributes,
			controls,
		)

		l.clearIdle(gen)
		result, err := conn.Search(req)
		l.touchIdle(gen)
		if err != nil {
			l.logSearch.Error("paged_search_failed",
				slog.String("operation", op),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
			handler(nil, searchStreamError(op, server, err))
			return
		}

		for _, raw := range result.Entries {
			buffer = append(buffer, l.normalizeEntry(raw))
			if len(buffer) >= threshold {
				page := &SearchPage{Entries: buffer}
				buffer = make([]Entry, 0, threshold)
				deliver(page)
			}
		}

		var cookie []byte
		if paging != nil {
			if ctrl := ldap.FindControl(result.Controls, ldap.ControlTypePaging); ctrl != nil {
				if responseControl, ok := ctrl.(*ldap.ControlPaging); ok {
					cookie = responseControl.Cookie
				}
			}
		}

		if len(cookie) == 0 {
			deliver(&SearchPage{Entries: buffer, Last: true})
			l.logSearch.Debug("paged_search_completed",
				slog.String("operation", op),
				slog.Int("pages", pages),
				slog.Int("entry_count", total),
				slog.Duration("duration", time.Since(start)))
			return
		}

		if len(buffer) == 0 {
			// Nothing to show the caller at this boundary; fetch the next
			// server page without surfacing it.
			paging.SetCookie(cookie)
			continue
		}

		page := &SearchPage{Entries: buffer}
		buffer = make([]Entry, 0, threshold)
		var once sync.Once
		page.next = func() {
			once.Do(func() {
				l.touchIdle(gen)
				resume <- struct{}{}
			})
		}
		deliver(page)

		select {
		case <-resume:
			paging.SetCookie(cookie)
		case <-ctx.Done():
			l.logSearch.Error("paged_search_cancelled",
				slog.String("operation", op),
				slog.Int("pages", pages),
				slog.String("error", ctx.Err().Error()))
			handler(nil, searchStreamError(op, server, ctx.Err()))
			return
		}
	}
}
