package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skybi/fleetdash/internal/api/schema"
)

const (
	browserCookie                 = "fleetdash_session"
	defaultBrowserSessionLifetime = 12 * time.Hour
)

// beginBrowserSession marks the requesting browser as logged in
func (service *Service) beginBrowserSession(writer http.ResponseWriter, request *http.Request) {
	id := uuid.NewString()
	service.browsers.Set(id, struct{}{})
	http.SetCookie(writer, &http.Cookie{
		Name:     browserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(service.browsers.Lifetime().Seconds()),
		HttpOnly: true,
		Secure:   request.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// endBrowserSession logs the requesting browser out
func (service *Service) endBrowserSession(writer http.ResponseWriter, request *http.Request) {
	if cookie, err := request.Cookie(browserCookie); err == nil {
		service.browsers.Unset(cookie.Value)
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     browserCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   request.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// hasBrowserSession reports whether the requesting browser logged in to this dashboard
func (service *Service) hasBrowserSession(request *http.Request) bool {
	cookie, err := request.Cookie(browserCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	return service.browsers.Has(cookie.Value)
}

// authenticated reports whether the request may act with the backend session
func (service *Service) authenticated(request *http.Request) bool {
	return service.hasBrowserSession(request) && service.Controller.Authenticated()
}

// middlewareCheckOrigin rejects state changing requests a browser sent from another origin
func (service *Service) middlewareCheckOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !service.originAllowed(request) {
				service.writer.WriteErrors(writer, http.StatusForbidden, schema.ErrForbiddenOrigin)
				return
			}
		}
		next.ServeHTTP(writer, request)
	})
}

func (service *Service) originAllowed(request *http.Request) bool {
	origin := request.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err == nil && parsed.Host != "" && strings.EqualFold(parsed.Host, request.Host) {
		return true
	}
	allowed := service.allowedOrigin()
	return allowed == "*" || (allowed != "" && strings.EqualFold(strings.TrimRight(allowed, "/"), origin))
}
