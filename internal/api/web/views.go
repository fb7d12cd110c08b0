package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/api/validation"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/fleet"
)

type overviewPage struct {
	Summary      dashboard.Summary
	Emulators    []dashboard.EmulatorRow
	Workstations []dashboard.WorkstationRow
	Operations   []dashboard.OperationRow
	Errors       []string
}

// EndpointOverview handles the 'GET /' endpoint
func (service *Service) EndpointOverview(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	page := new(overviewPage)
	collect := func(err error) bool {
		if err == nil {
			return true
		}
		if service.Controller.Authenticated() {
			page.Errors = append(page.Errors, err.Error())
		}
		return false
	}

	summary, err := service.Controller.Summary(ctx)
	if collect(err) {
		page.Summary = summary
	}
	emulators, err := service.Controller.Emulators(ctx)
	if collect(err) {
		page.Emulators = emulators
	}
	workstations, err := service.Controller.Workstations(ctx)
	if collect(err) {
		page.Workstations = workstations
	}
	operations, err := service.Controller.Operations(ctx)
	if collect(err) {
		page.Operations = operations
	}

	// The session expired while the page was assembled
	if !service.Controller.Authenticated() {
		http.Redirect(writer, request, "/login", http.StatusSeeOther)
		return
	}
	service.renderHTML(writer, http.StatusOK, "overview.html", page)
}

// EndpointGetSummary handles the 'GET /v1/summary' endpoint
func (service *Service) EndpointGetSummary(writer http.ResponseWriter, request *http.Request) {
	summary, err := service.Controller.Summary(request.Context())
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, summary)
}

// EndpointGetEmulators handles the 'GET /v1/emulators' endpoint
func (service *Service) EndpointGetEmulators(writer http.ResponseWriter, request *http.Request) {
	emulators, err := service.Controller.Emulators(request.Context())
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, emulators)
}

// EndpointGetWorkstations handles the 'GET /v1/workstations?skip={number?:0}&limit={number?:100}' endpoint
func (service *Service) EndpointGetWorkstations(writer http.ResponseWriter, request *http.Request) {
	skip, limit, validationErrs := validation.QueryWindow(request, dashboard.WorkstationsLimit, 1000)
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	workstations, err := service.Controller.Workstations(request.Context())
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, schema.Paginate(workstations, skip, limit))
}

// EndpointGetOperations handles the 'GET /v1/operations?skip={number?:0}&limit={number?:50}' endpoint
func (service *Service) EndpointGetOperations(writer http.ResponseWriter, request *http.Request) {
	skip, limit, validationErrs := validation.QueryWindow(request, dashboard.OperationsLimit, 1000)
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	operations, err := service.Controller.Operations(request.Context())
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, schema.Paginate(operations, skip, limit))
}

// EndpointGetOperation handles the 'GET /v1/operations/{id}' endpoint
func (service *Service) EndpointGetOperation(writer http.ResponseWriter, request *http.Request) {
	id := fleet.ParseID(chi.URLParam(request, "id"))

	operation, err := service.Controller.Operation(request.Context(), id)
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, operation)
}

func (service *Service) renderHTML(writer http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	if _, err := buf.WriteTo(writer); err != nil {
		log.Debug().Err(err).Str("template", name).Msg("could not write page")
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}
