package oauth

import (
	"net/url"
	"strings"
)

// reserved parameters cannot be overridden by extras.
var reserved = map[string]bool{
	"client_id":     true,
	"redirect_uri":  true,
	"response_type": true,
	"state":         true,
}

// BuildAuthorizationURL returns cfg.AuthorizeURL with the standard
// authorization-code parameters, then each extras set applied in order
// (later sets win). state is always the value given. Query keys are sorted,
// so equal inputs give equal URLs.
func BuildAuthorizationURL(cfg ProviderConfig, state string, extras ...url.Values) string {
	u, err := url.Parse(cfg.AuthorizeURL)
	if err != nil {
		u = &url.URL{Path: cfg.AuthorizeURL}
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	if len(cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(cfg.Scopes, " "))
	}

	for _, extra := range extras {
		for k, vs := range extra {
			if reserved[k] {
				continue
			}
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	}

	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}
