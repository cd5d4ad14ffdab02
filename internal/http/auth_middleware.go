package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type authContextKey struct{}

// Token sources recorded on authInfo.
const (
	tokenViaHeader = "header"
	tokenViaQuery  = "query"
)

type authInfo struct {
	OperatorID string
	Via        string
}

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errMalformedBearer      = errors.New("authorization header is not a bearer token")
	errNoOperator           = errors.New("token carries no operator")
)

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth rejects requests without a valid operator token and stores the
// operator on the request context.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, err := r.authenticate(req)
		if err != nil {
			r.logger.Warn("inspection request unauthenticated", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "operator token required")
			return
		}
		ctx := context.WithValue(req.Context(), authContextKey{}, info)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// authenticate resolves the operator behind a request. EventSource and
// browser WebSocket clients cannot set headers, so stream routes also accept
// the access_token query parameter when no Authorization header is sent.
func (r *Router) authenticate(req *http.Request) (authInfo, error) {
	via := tokenViaHeader
	token, err := bearerToken(req.Header.Get("Authorization"))
	if errors.Is(err, errMissingAuthorization) && isStreamRoute(req.URL.Path) {
		if q := strings.TrimSpace(req.URL.Query().Get("access_token")); q != "" {
			token, err, via = q, nil, tokenViaQuery
		}
	}
	if err != nil {
		return authInfo{}, err
	}
	claims, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		return authInfo{}, err
	}
	operator := strings.TrimSpace(claims.OperatorID)
	if operator == "" {
		return authInfo{}, errNoOperator
	}
	return authInfo{OperatorID: operator, Via: via}, nil
}

func isStreamRoute(path string) bool {
	if path == "/ws/inspections" {
		return true
	}
	return strings.HasPrefix(path, "/inspections/") && strings.HasSuffix(strings.TrimRight(path, "/"), "/stream")
}

func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	return info, ok
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", errMalformedBearer
	}
	return token, nil
}
