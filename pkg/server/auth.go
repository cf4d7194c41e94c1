package server

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	pz "github.com/weberc2/httpeasy"
)

const bearerPrefix = "Bearer "

// Authenticator guards mutating routes with ES512-signed bearer tokens. A
// nil `Key` disables the check.
type Authenticator struct {
	Key *ecdsa.PublicKey
}

func (a *Authenticator) AuthZ(h pz.Handler) pz.Handler {
	if a == nil || a.Key == nil {
		return h
	}
	return func(r pz.Request) pz.Response {
		claims, err := a.claims(r.Headers)
		if err != nil {
			return pz.Unauthorized(pz.String("invalid access token"), err)
		}
		return h(r).
			WithHeaders(http.Header{"User": []string{claims.Subject}}).
			WithLogging(struct {
				Message string `json:"message"`
				Subject string `json:"subject"`
			}{
				Message: "token accepted",
				Subject: claims.Subject,
			})
	}
}

func (a *Authenticator) claims(headers http.Header) (
	*jwt.StandardClaims,
	*TokenErr,
) {
	token, ok := strings.CutPrefix(headers.Get("Authorization"), bearerPrefix)
	if !ok {
		return nil, &TokenErr{Reason: fmt.Errorf(
			"authorization header lacks `%s` prefix",
			strings.TrimSpace(bearerPrefix),
		)}
	}

	var claims jwt.StandardClaims
	if _, err := jwt.ParseWithClaims(token, &claims, a.keyFunc); err != nil {
		return nil, &TokenErr{Reason: err}
	}
	return &claims, nil
}

func (a *Authenticator) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodES512 {
		return nil, fmt.Errorf(
			"token signed with `%v`; only `ES512` is accepted",
			token.Header["alg"],
		)
	}
	return a.Key, nil
}

// TokenErr is logged in place of a rejected token.
type TokenErr struct {
	Reason error
}

func (err *TokenErr) Error() string {
	return fmt.Sprintf("invalid access token: %v", err.Reason)
}

func (err *TokenErr) Unwrap() error { return err.Reason }

func (err *TokenErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}{
		Message: "invalid access token",
		Reason:  err.Reason.Error(),
	})
}
