package ldap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// SearchOptions are the tunable parts of one directory search.
type SearchOptions struct {
	// Filter is the search filter expression.
	Filter string
	// Scope is base, one, or sub. Empty means sub.
	Scope string
	// SizeLimit caps the entries the server returns. Zero means no
	// client-imposed cap.
	SizeLimit int
	// Attributes restricts which attributes the server returns. Nil means
	// all.
	Attributes []string
}

// SearchParams is the pair the before-search hook receives and may rewrite.
type SearchParams struct {
	BaseDN  string
	Options SearchOptions
}

// BeforeSearchHook is invoked before every search, paged or not, with the
// effective parameters. The returned values replace the originals.
type BeforeSearchHook func(ctx context.Context, params SearchParams) SearchParams

func (l *LDAP) applyBeforeSearch(ctx context.Context, params SearchParams) SearchParams {
	if l.beforeSearch == nil {
		return params
	}
	return l.beforeSearch(ctx, params)
}

// searchScope maps the option scope names onto protocol constants.
func searchScope(scope string) (int, error) {
	switch scope {
	case "", ScopeSub:
		return ldap.ScopeWholeSubtree, nil
	case ScopeOne:
		return ldap.ScopeSingleLevel, nil
	case ScopeBase:
		return ldap.ScopeBaseObject, nil
	default:
		return 0, fmt.Errorf("unknown search scope %q", scope)
	}
}

// runSearch is the unpaginated search executor: resolve the bind gate, apply
// the before-search hook, issue one search, and return every entry
// normalized. Lookups that expect a bounded result set go through here.
func (l *LDAP) runSearch(ctx context.Context, op string, params SearchParams) ([]Entry, error) {
	server := l.config.serverAddress()

	conn, gate, gen, err := l.session()
	if err != nil {
		return nil, searchSetupError(op, server, err)
	}
	if err := l.ensureBound(ctx, conn, gate, gen); err != nil {
		return nil, err
	}
	params = l.applyBeforeSearch(ctx, params)

	scope, err := searchScope(params.Options.Scope)
	if err != nil {
		return nil, searchSetupError(op, server, err)
	}

	start := time.Now()
	l.logSearch.Debug("search_started",
		slog.String("operation", op),
		slog.String("base_dn", params.BaseDN),
		slog.String("filter", params.Options.Filter),
		slog.String("scope", params.Options.Scope),
		slog.Int("size_limit", params.Options.SizeLimit))

	req := ldap.NewSearchRequest(
		params.BaseDN,
		scope,
		ldap.NeverDerefAliases,
		params.Options.SizeLimit,
		0,
		false,
		params.Options.Filter,
		params.Options.Attributes,
		nil,
	)
	l.clearIdle(gen)
	result, err := conn.Search(req)
	l.touchIdle(gen)
	if err != nil {
		l.logSearch.Error("search_failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, searchStreamError(op, server, err)
	}

	entries := make([]Entry, 0, len(result.Entries))
	for _, raw := range result.Entries {
		entries = append(entries, l.normalizeEntry(raw))
	}

	l.logSearch.Debug("search_completed",
		slog.String("operation", op),
		slog.Int("entry_count", len(entries)),
		slog.Duration("duration", time.Since(start)))
	return entries, nil
}

// userSearchParams renders the standard user search for a username.
func (l *LDAP) userSearchParams(username string) SearchParams {
	return SearchParams{
		BaseDN: l.config.BaseDN,
		Options: SearchOptions{
			Filter:    l.buildUserFilter(username),
			Scope:     l.config.UserSearchScope,
			SizeLimit: l.config.SearchSizeLimit,
		},
	}
}

// SearchUsers returns every entry matching the configured user filters for
// the given username.
func (l *LDAP) SearchUsers(username string) ([]Entry, error) {
	return l.SearchUsersContext(context.Background(), username)
}

// SearchUsersContext is SearchUsers with a caller-supplied context.
func (l *LDAP) SearchUsersContext(ctx context.Context, username string) ([]Entry, error) {
	l.logSearch.Info("user_search_requested",
		slog.String("username", username))
	return l.runSearch(ctx, "search_users", l.userSearchParams(username))
}

// FindUserByUsername returns the entry matching the configured user filters
// for the username, or ErrUserNotFound. More than one match is logged and
// the first entry returned.
func (l *LDAP) FindUserByUsername(username string) (*Entry, error) {
	return l.FindUserByUsernameContext(context.Background(), username)
}

// FindUserByUsernameContext is FindUserByUsername with a caller-supplied
// context.
func (l *LDAP) FindUserByUsernameContext(ctx context.Context, username string) (*Entry, error) {
	entries, err := l.runSearch(ctx, "find_user_by_username", l.userSearchParams(username))
	if err != nil {
		return nil, err
	}
	return l.pickSingle(entries, "find_user_by_username", username)
}

// FindUserByID looks a user up by a stored unique identifier. The id must be
// hex encoded; it matches against the attribute's raw bytes. An empty
// attribute selects the configured unique-identifier field list.
func (l *LDAP) FindUserByID(id, attribute string) (*Entry, error) {
	return l.FindUserByIDContext(context.Background(), id, attribute)
}

// FindUserByIDContext is FindUserByID with a caller-supplied context.
func (l *LDAP) FindUserByIDContext(ctx context.Context, id, attribute string) (*Entry, error) {
	filter := l.buildIDFilter(id, attribute)
	if filter == "" {
		return nil, searchSetupError("find_user_by_id", l.config.serverAddress(),
			errors.New("no unique identifier attribute configured"))
	}

	params := SearchParams{
		BaseDN: l.config.BaseDN,
		Options: SearchOptions{
			Filter:    filter,
			Scope:     l.config.UserSearchScope,
			SizeLimit: l.config.SearchSizeLimit,
		},
	}
	entries, err := l.runSearch(ctx, "find_user_by_id", params)
	if err != nil {
		return nil, err
	}
	return l.pickSingle(entries, "find_user_by_id", id)
}

// pickSingle applies the single-result policy: none is ErrUserNotFound, more
// than one is logged and the first wins.
func (l *LDAP) pickSingle(entries []Entry, op, key string) (*Entry, error) {
	switch len(entries) {
	case 0:
		return nil, fmt.Errorf("%s %q: %w", op, key, ErrUserNotFound)
	case 1:
		return &entries[0], nil
	default:
		l.logSearch.Info("multiple_entries_found",
			slog.String("operation", op),
			slog.String("value", key),
			slog.Int("entry_count", len(entries)))
		return &entries[0], nil
	}
}
