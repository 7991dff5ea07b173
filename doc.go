// Package ldap is a directory-service client adapter for identity-provider
// callers. A client manages a single logical connection to an LDAP server
// and exposes the primitives a login flow needs: user lookup by username or
// stored unique id, paged enumeration of matching users, a group-membership
// predicate, and credential verification by binding as the user.
//
// This package covers connection establishment (plaintext, ldaps, or
// STARTTLS upgrade) with a hard connect deadline, a lazy one-time
// administrative bind per connection, search-filter construction from flat
// host-application settings, server-side paging with caller-paced flow
// control, and entry normalization. It does not cache results, pool
// connections, or make authorization decisions beyond the single group
// predicate.
//
// # Basic Usage
//
//	client, err := ldap.NewFromSettings(ldap.Settings{
//		"host":                   "ldap.example.com",
//		"port":                   389,
//		"encryption":             "tls",
//		"authentication":         true,
//		"authentication_user_dn": "cn=admin,dc=example,dc=com",
//		"authentication_password": "secret",
//		"base_dn":                "dc=example,dc=com",
//		"user_search_field":      "uid,mail",
//		"user_search_filter":     "objectClass=person",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	entry, err := client.FindUserByUsername("alice")
//	if err != nil {
//		log.Printf("lookup failed: %v", err)
//		return
//	}
//	if client.Authenticate(entry.DN, "alices-password") {
//		fmt.Println("welcome,", entry.Attribute("cn"))
//	}
//
// # Paged Searches
//
// SearchUsersPaged streams matches in bounded chunks. Pages that carry a
// continuation suspend the stream until the handler calls Next, which is
// how a slow consumer paces the server-side paging cursor:
//
//	client.SearchUsersPaged("*", func(page *ldap.SearchPage, err error) {
//		if err != nil {
//			log.Printf("stream failed: %v", err)
//			return
//		}
//		process(page.Entries)
//		page.Next()
//	})
//
// # Error Handling
//
// Failures wrap one category sentinel each — ErrConnect, ErrTimeout,
// ErrBind, ErrSearchSetup, ErrSearchStream, ErrConfiguration — so callers
// classify with errors.Is or the Is*Error helpers. Authenticate is the one
// deliberate exception: failed credentials are a normal outcome and yield
// false, never an error.
package ldap
