package ldap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// buildUserFilter combines the optional configured extra clause with an
// equality clause over the configured username fields into one AND
// expression. A single field matches directly; two or more are OR combined.
// An empty field list is a configuration error that is logged, not returned;
// the filter then carries only the extra clause (the and-of-nothing "(&)"
// matches everything per RFC 4526).
func (l *LDAP) buildUserFilter(username string) string {
	clauses := make([]string, 0, 2)

	if extra := strings.TrimSpace(l.config.UserSearchFilter); extra != "" {
		if !strings.HasPrefix(extra, "(") {
			extra = "(" + extra + ")"
		}
		clauses = append(clauses, extra)
	}

	escaped := ldap.EscapeFilter(username)
	fields := l.config.UserSearchFields
	switch {
	case len(fields) > 1:
		var or strings.Builder
		or.WriteString("(|")
		for _, field := range fields {
			fmt.Fprintf(&or, "(%s=%s)", field, escaped)
		}
		or.WriteString(")")
		clauses = append(clauses, or.String())
	case len(fields) == 1:
		clauses = append(clauses, fmt.Sprintf("(%s=%s)", fields[0], escaped))
	default:
		err := configurationError("build_user_filter", errors.New("user search field list is empty"))
		l.logSearch.Error("user_search_field_not_configured",
			slog.String("error", err.Error()))
	}

	return "(&" + strings.Join(clauses, "") + ")"
}

// buildGroupFilter assembles the group-membership search for the configured
// group. It reports false when group filtering is disabled, meaning the
// membership predicate is satisfied without a search. Placeholders are
// substituted after assembly so the member-format template stays intact
// until the whole expression exists.
func (l *LDAP) buildGroupFilter(username, userDN string) (SearchParams, bool) {
	c := &l.config
	if !c.GroupFilterEnabled {
		return SearchParams{}, false
	}

	var clauses []string
	if c.GroupFilterObjectClass != "" {
		clauses = append(clauses, fmt.Sprintf("(objectclass=%s)", ldap.EscapeFilter(c.GroupFilterObjectClass)))
	}
	if c.GroupFilterMemberAttribute != "" && c.GroupFilterMemberFormat != "" {
		clauses = append(clauses, fmt.Sprintf("(%s=%s)", c.GroupFilterMemberAttribute, c.GroupFilterMemberFormat))
	}
	if c.GroupFilterIDAttribute != "" && c.GroupFilterGroupName != "" {
		clauses = append(clauses, fmt.Sprintf("(%s=%s)", c.GroupFilterIDAttribute, ldap.EscapeFilter(c.GroupFilterGroupName)))
	}

	filter := expandPlaceholders("(&"+strings.Join(clauses, "")+")", username, userDN)
	return SearchParams{
		BaseDN: c.BaseDN,
		Options: SearchOptions{
			Filter: filter,
			Scope:  ScopeSub,
		},
	}, true
}

// expandPlaceholders substitutes #{username} and #{userdn} anywhere in an
// assembled filter. Values are filter-escaped before substitution so caller
// input cannot change the expression structure.
func expandPlaceholders(filter, username, userDN string) string {
	return strings.NewReplacer(
		"#{username}", ldap.EscapeFilter(username),
		"#{userdn}", ldap.EscapeFilter(userDN),
	).Replace(filter)
}

// buildIDFilter matches a stored unique identifier. Identifiers arrive hex
// encoded and are compared against the attribute's raw bytes; an identifier
// that does not parse as hex is compared as literal text. With no explicit
// attribute the configured unique-identifier fields are OR combined; when
// that list is empty too, the lookup cannot be built and "" is returned
// (the caller reports it).
func (l *LDAP) buildIDFilter(id, attribute string) string {
	value := id
	if raw, err := hex.DecodeString(id); err == nil {
		value = string(raw)
	} else {
		l.logSearch.Debug("id_not_hex_encoded",
			slog.String("error", err.Error()))
	}
	escaped := ldap.EscapeFilter(value)

	if attribute != "" {
		return fmt.Sprintf("(%s=%s)", attribute, escaped)
	}

	fields := l.config.UniqueIdentifierFields
	switch {
	case len(fields) > 1:
		var or strings.Builder
		or.WriteString("(|")
		for _, field := range fields {
			fmt.Fprintf(&or, "(%s=%s)", field, escaped)
		}
		or.WriteString(")")
		return or.String()
	case len(fields) == 1:
		return fmt.Sprintf("(%s=%s)", fields[0], escaped)
	default:
		err := configurationError("build_id_filter", errors.New("unique identifier field list is empty"))
		l.logSearch.Error("unique_identifier_field_not_configured",
			slog.String("error", err.Error()))
		return ""
	}
}
