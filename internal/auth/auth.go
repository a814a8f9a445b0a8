package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	AccountHeader = "X-Account"
	DevTokenEnv   = "COURSELEDGER_DEV_TOKEN"
)

var (
	ErrMissingBearer  = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidAccount = errors.New("invalid account address")
)

// Claims identify the caller. A zero Account means no wallet is connected.
type Claims struct {
	Account common.Address
	Token   string
}

func (c Claims) Connected() bool {
	return c.Account != (common.Address{})
}

type Authenticator interface {
	Authenticate(r *http.Request) (Claims, error)
}

// TokenAuthenticator takes the account from the X-Account header. When
// DevToken is set every request must also carry it as a bearer token.
type TokenAuthenticator struct {
	DevToken string
}

func NewAuthenticatorFromEnv(getenv func(string) string) *TokenAuthenticator {
	return &TokenAuthenticator{DevToken: getenv(DevTokenEnv)}
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (Claims, error) {
	var claims Claims
	if a.DevToken != "" {
		bearer, err := extractBearer(r)
		if err != nil {
			return Claims{}, err
		}
		if subtle.ConstantTimeCompare([]byte(bearer), []byte(a.DevToken)) != 1 {
			return Claims{}, ErrInvalidToken
		}
		claims.Token = bearer
	}

	account := strings.TrimSpace(r.Header.Get(AccountHeader))
	if account == "" {
		return claims, nil
	}
	if !common.IsHexAddress(account) {
		return Claims{}, ErrInvalidAccount
	}
	claims.Account = common.HexToAddress(account)
	return claims, nil
}

func extractBearer(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingBearer
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
