package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

type AuthTokenContextKeyType string
type UserIdContextKeyType string

type FindAuthTokenFunc func(r *http.Request) string

func FindAuthToken(r *http.Request, cookieName string, queryParam string) string {
	authHeader := ParseAuthTokenHeader(r.Header)

	if authHeader != "" {
		return authHeader
	}

	if cookie, err := r.Cookie(cookieName); cookie != nil && err == nil {
		return cookie.Value
	}

	return r.FormValue(queryParam)
}

func ParseAuthTokenHeader(headers http.Header) string {
	authHeader := headers.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	authHeader = strings.TrimPrefix(authHeader, "Bearer ")
	authHeader = strings.TrimPrefix(authHeader, "bearer ")

	return authHeader
}

func jwtPurposeEqual(aud jwt.ClaimStrings, purpose core.JWTPurpose) bool {
	return slices.Contains(aud, string(purpose))
}

type AuthMiddlewareOptions struct {
	Context        core.Context
	FindToken      FindAuthTokenFunc
	Purpose        core.JWTPurpose
	AuthContextKey string
	EmptyAllowed   bool
}

func AuthMiddleware(options AuthMiddlewareOptions) func(http.Handler) http.Handler {
	config := options.Context.Config()

	if options.AuthContextKey == "" {
		options.AuthContextKey = string(DEFAULT_USER_ID_CONTEXT_KEY)
	}

	if options.FindToken == nil {
		options.FindToken = func(r *http.Request) string {
			return FindAuthToken(r, core.AUTH_COOKIE_NAME, core.AUTH_TOKEN_NAME)
		}
	}

	domain := config.Config().Core.Domain

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authToken := options.FindToken(r)

			if authToken == "" {
				if !options.EmptyAllowed {
					http.Error(w, "Invalid JWT", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claim, err := core.JWTVerifyToken(authToken, domain, options.Context.Config().Config().Core.Identity.PrivateKey(), func(claim *jwt.RegisteredClaims) error {
				aud, _ := claim.GetAudience()

				if options.Purpose != core.JWTPurposeNone && !jwtPurposeEqual(aud, options.Purpose) {
					return core.ErrJWTInvalid
				}

				return nil
			})

			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			userId, err := strconv.ParseUint(claim.Subject, 10, 64)

			if err != nil {
				http.Error(w, core.ErrJWTInvalid.Error(), http.StatusBadRequest)
				return
			}

			exists, _, err := core.GetService[core.UserService](options.Context, core.USER_SERVICE).AccountExists(uint(userId))

			if !exists || err != nil {
				http.Error(w, core.ErrJWTInvalid.Error(), http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), UserIdContextKeyType(options.AuthContextKey), uint(userId))
			ctx = context.WithValue(ctx, AUTH_TOKEN_CONTEXT_KEY, authToken)
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

const DEFAULT_USER_ID_CONTEXT_KEY UserIdContextKeyType = "user_id"
const AUTH_TOKEN_CONTEXT_KEY AuthTokenContextKeyType = "auth_token"

var (
	ErrorUserContextInvalid      = errors.New("user id stored in context is not of type uint")
	ErrorAuthTokenContextInvalid = errors.New("auth token stored in context is not of type string")
)

func GetUserFromContext(ctx context.Context, key ...string) (uint, error) {
	realKey := ""

	if len(key) > 0 {
		realKey = key[0]
	}

	if realKey == "" {
		realKey = string(DEFAULT_USER_ID_CONTEXT_KEY)
	}

	userId, ok := ctx.Value(UserIdContextKeyType(realKey)).(uint)

	if !ok {
		return 0, ErrorUserContextInvalid
	}

	return userId, nil
}

func GetAuthTokenFromContext(ctx context.Context) (string, error) {
	authToken, ok := ctx.Value(AUTH_TOKEN_CONTEXT_KEY).(string)

	if !ok {
		return "", ErrorAuthTokenContextInvalid
	}

	return authToken, nil
}
