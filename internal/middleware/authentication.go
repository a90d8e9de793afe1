package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const authRealm = "ridgelb requires authentication"

// Authentication enforces HTTP Basic Auth (RFC 7617) backed by an LDAP
// directory bind-and-search: the submitted username is searched for under
// UserBase using a "(<RDNAttribute>=<user>)" filter, and every DN the
// search returns is tried as a simple bind with the submitted password
// until one succeeds.
type Authentication struct {
	passthrough

	DirectoryAddress string
	UserBase         string
	RDNAttribute     string
	Recursive        bool
}

func NewAuthentication(directoryAddress, userBase, rdnAttribute string, recursive bool) *Authentication {
	return &Authentication{
		DirectoryAddress: directoryAddress,
		UserBase:         userBase,
		RDNAttribute:     rdnAttribute,
		Recursive:        recursive,
	}
}

func (m *Authentication) ModifyRequest(r *http.Request) (*http.Request, *http.Response) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return r, Unauthorized(authRealm)
	}
	authenticated, err := m.checkCredentials(user, pass)
	if err != nil || !authenticated {
		return r, Unauthorized(authRealm)
	}
	return r, nil
}

func (m *Authentication) checkCredentials(user, password string) (bool, error) {
	conn, err := ldap.DialURL(m.DirectoryAddress)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	// Each directory request (the search and every bind) gets its own deadline.
	conn.SetTimeout(10 * time.Second)

	scope := ldap.ScopeSingleLevel
	if m.Recursive {
		scope = ldap.ScopeWholeSubtree
	}

	searchRequest := ldap.NewSearchRequest(
		m.UserBase,
		scope,
		ldap.NeverDerefAliases,
		0, 0, false,
		fmt.Sprintf("(%s=%s)", m.RDNAttribute, ldap.EscapeFilter(user)),
		[]string{"1.1"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return false, err
	}

	for _, entry := range result.Entries {
		if err := conn.Bind(entry.DN, password); err == nil {
			return true, nil
		}
	}
	return false, nil
}
