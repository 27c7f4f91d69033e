package recordsvc

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errBadAPIKey            = errors.New("invalid api key")
)

// Auth checks the API key and session token on every request. Empty
// settings disable the corresponding check.
type Auth struct {
	APIKey string
	Secret []byte

	parser *jwt.Parser
}

// NewAuth returns an Auth that requires apiKey (when set) and an HS256
// token signed with secret (when set).
func NewAuth(apiKey string, secret []byte) *Auth {
	return &Auth{
		APIKey: apiKey,
		Secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Middleware rejects unauthenticated requests with 401.
func (a *Auth) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := a.check(c.Request().Header); err != nil {
				return c.JSON(http.StatusUnauthorized, errorBody(err.Error()))
			}
			return next(c)
		}
	}
}

func (a *Auth) check(h http.Header) error {
	if a.APIKey != "" {
		got := h.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.APIKey)) != 1 {
			return errBadAPIKey
		}
	}
	if len(a.Secret) == 0 {
		return nil
	}
	token, err := bearerToken(h.Get(echo.HeaderAuthorization))
	if err != nil {
		return err
	}
	_, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.Secret, nil
	})
	return err
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
