package ldap

import (
	"context"
	"log/slog"
)

// IsUserInGroup reports whether the user belongs to the configured group.
// With group filtering disabled the predicate is satisfied without issuing
// a search.
//
// Parameters:
//   - username: the login name substituted for #{username} in the member
//     format template
//   - userDN: the user's distinguished name substituted for #{userdn}
//
// Returns:
//   - bool: membership result
//   - error: a search failure; membership is never assumed on error
func (l *LDAP) IsUserInGroup(username, userDN string) (bool, error) {
	return l.IsUserInGroupContext(context.Background(), username, userDN)
}

// IsUserInGroupContext is IsUserInGroup with a caller-supplied context.
func (l *LDAP) IsUserInGroupContext(ctx context.Context, username, userDN string) (bool, error) {
	params, enabled := l.buildGroupFilter(username, userDN)
	if !enabled {
		l.logSearch.Debug("group_filter_disabled",
			slog.String("username", username))
		return true, nil
	}

	l.logSearch.Info("group_membership_check",
		slog.String("username", username),
		slog.String("group", l.config.GroupFilterGroupName),
		slog.String("filter", params.Options.Filter))

	entries, err := l.runSearch(ctx, "group_membership", params)
	if err != nil {
		return false, err
	}

	inGroup := len(entries) > 0
	l.logSearch.Debug("group_membership_result",
		slog.String("username", username),
		slog.Bool("member", inGroup),
		slog.Int("entry_count", len(entries)))
	return inGroup, nil
}
