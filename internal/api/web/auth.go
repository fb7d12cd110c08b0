package web

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/client"
)

var errLoginFailed = func(message string) *schema.Error {
	return &schema.Error{
		Type:    "access.loginFailed",
		Message: message,
	}
}

type loginPage struct {
	Username string
	Error    string
}

type endpointLoginRequestPayload struct {
	Username *string `json:"username" required:"true"`
	Password *string `json:"password" required:"true"`
}

// MiddlewareRequireSession answers 401 unless the browser logged in and the dashboard holds a backend session
func (service *Service) MiddlewareRequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if !service.authenticated(request) {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}
		next(writer, request)
	}
}

// MiddlewareRedirectToLogin redirects to the login page unless the browser logged in and the dashboard holds a
// backend session
func (service *Service) MiddlewareRedirectToLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if !service.authenticated(request) {
			http.Redirect(writer, request, "/login", http.StatusSeeOther)
			return
		}
		next(writer, request)
	}
}

// EndpointLoginPage handles the 'GET /login' endpoint
func (service *Service) EndpointLoginPage(writer http.ResponseWriter, request *http.Request) {
	if service.authenticated(request) {
		http.Redirect(writer, request, "/", http.StatusSeeOther)
		return
	}
	service.renderHTML(writer, http.StatusOK, "login.html", &loginPage{})
}

// EndpointLogin handles the 'POST /login' endpoint.
// It accepts an HTML form as well as a JSON body; forms are answered with HTML, JSON with JSON.
func (service *Service) EndpointLogin(writer http.ResponseWriter, request *http.Request) {
	if isForm(request) {
		service.loginForm(writer, request)
		return
	}

	payload, validationErrs, err := schema.UnmarshalBody[endpointLoginRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	resp, err := service.Controller.Login(request.Context(), *payload.Username, *payload.Password)
	if err != nil {
		service.writeLoginError(writer, err)
		return
	}
	service.beginBrowserSession(writer, request)
	service.writer.WriteJSON(writer, map[string]any{
		"token_type": resp.TokenType,
		"expires_in": resp.ExpiresIn,
	})
}

func (service *Service) loginForm(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.renderHTML(writer, http.StatusBadRequest, "login.html", &loginPage{Error: "Invalid login form"})
		return
	}
	username := request.PostForm.Get("username")
	password := request.PostForm.Get("password")
	if username == "" || password == "" {
		service.renderHTML(writer, http.StatusBadRequest, "login.html", &loginPage{
			Username: username,
			Error:    "Username and password are required",
		})
		return
	}

	if _, err := service.Controller.Login(request.Context(), username, password); err != nil {
		status := http.StatusUnauthorized
		var apiErr *client.Error
		if !client.IsUnauthenticated(err) && !errors.As(err, &apiErr) {
			status = http.StatusBadGateway
		}
		service.renderHTML(writer, status, "login.html", &loginPage{
			Username: username,
			Error:    client.Message(err),
		})
		return
	}
	service.beginBrowserSession(writer, request)
	http.Redirect(writer, request, "/", http.StatusSeeOther)
}

func (service *Service) writeLoginError(writer http.ResponseWriter, err error) {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, errLoginFailed(apiErr.Message))
		return
	}
	service.writeClientError(writer, err)
}

// EndpointLogout handles the 'POST /logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	if !service.hasBrowserSession(request) {
		if isForm(request) {
			http.Redirect(writer, request, "/login", http.StatusSeeOther)
			return
		}
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return
	}
	service.endBrowserSession(writer, request)
	if err := service.Controller.Logout(request.Context()); err != nil {
		log.Warn().Err(err).Msg("could not remove the persisted session token")
	}
	if isForm(request) {
		http.Redirect(writer, request, "/login", http.StatusSeeOther)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

func isForm(request *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || strings.HasPrefix(mediaType, "multipart/")
}
