package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// identity is the caller as derived from the Authorization header. The
// upstream API is the authority on the token; the gateway only needs a
// stable user id to key the durable like store, so the claims are read
// without signature verification and the raw token is passed through on
// every upstream call.
type identity struct {
	UserID string
	Token  string
}

func callerIdentity(r *http.Request) identity {
	header := r.Header.Get("Authorization")
	if header == "" {
		return identity{}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return identity{}
	}

	id := identity{Token: token}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return id
	}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		id.UserID = sub
	}
	return id
}

func (id identity) authenticated() bool {
	return id.Token != ""
}
