package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/fleet"
)

type endpointEmulatorRequestPayload struct {
	WorkstationID *fleet.ID      `json:"workstation_id" required:"true"`
	Name          *string        `json:"name" required:"true"`
	Config        map[string]any `json:"config"`
}

type endpointActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// EndpointCreateEmulator handles the 'POST /v1/emulators' endpoint
func (service *Service) EndpointCreateEmulator(writer http.ResponseWriter, request *http.Request) {
	payload, ok := service.unmarshalEmulatorPayload(writer, request)
	if !ok {
		return
	}
	if err := service.Controller.CreateEmulator(request.Context(), *payload.WorkstationID, *payload.Name, payload.Config); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, &endpointActionResponse{Success: true})
}

// EndpointStartEmulator handles the 'POST /v1/emulators/start' endpoint
func (service *Service) EndpointStartEmulator(writer http.ResponseWriter, request *http.Request) {
	payload, ok := service.unmarshalEmulatorPayload(writer, request)
	if !ok {
		return
	}
	if err := service.Controller.StartEmulator(request.Context(), *payload.WorkstationID, *payload.Name); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, &endpointActionResponse{Success: true})
}

// EndpointStopEmulator handles the 'POST /v1/emulators/stop' endpoint
func (service *Service) EndpointStopEmulator(writer http.ResponseWriter, request *http.Request) {
	payload, ok := service.unmarshalEmulatorPayload(writer, request)
	if !ok {
		return
	}
	if err := service.Controller.StopEmulator(request.Context(), *payload.WorkstationID, *payload.Name); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, &endpointActionResponse{Success: true})
}

// EndpointDeleteEmulator handles the 'DELETE /v1/emulators' endpoint
func (service *Service) EndpointDeleteEmulator(writer http.ResponseWriter, request *http.Request) {
	payload, ok := service.unmarshalEmulatorPayload(writer, request)
	if !ok {
		return
	}
	if err := service.Controller.DeleteEmulator(request.Context(), *payload.WorkstationID, *payload.Name); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, &endpointActionResponse{Success: true})
}

func (service *Service) unmarshalEmulatorPayload(writer http.ResponseWriter, request *http.Request) (*endpointEmulatorRequestPayload, bool) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointEmulatorRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return nil, false
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return nil, false
	}
	return payload, true
}

// EndpointAddWorkstation handles the 'POST /v1/workstations' endpoint
func (service *Service) EndpointAddWorkstation(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[fleet.WorkstationCreate](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	workstation, err := service.Controller.AddWorkstation(request.Context(), payload)
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, workstation)
}

// EndpointRemoveWorkstation handles the 'DELETE /v1/workstations/{id}' endpoint
func (service *Service) EndpointRemoveWorkstation(writer http.ResponseWriter, request *http.Request) {
	id := fleet.ParseID(chi.URLParam(request, "id"))

	if err := service.Controller.RemoveWorkstation(request.Context(), id); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, &endpointActionResponse{Success: true})
}

// EndpointTestConnection handles the 'POST /v1/workstations/{id}/test-connection' endpoint
func (service *Service) EndpointTestConnection(writer http.ResponseWriter, request *http.Request) {
	id := fleet.ParseID(chi.URLParam(request, "id"))

	result, err := service.Controller.TestConnection(request.Context(), id)
	if err != nil {
		service.writeClientError(writer, err)
		return
	}
	response := &endpointActionResponse{Success: true, Message: result.Message}
	if result.Success != nil {
		response.Success = *result.Success
	}
	service.writer.WriteJSON(writer, response)
}

// EndpointCancelOperation handles the 'POST /v1/operations/{id}/cancel' endpoint
func (service *Service) EndpointCancelOperation(writer http.ResponseWriter, request *http.Request) {
	id := fleet.ParseID(chi.URLParam(request, "id"))

	if err := service.Controller.CancelOperation(request.Context(), id); err != nil {
		service.writeClientError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, &endpointActionResponse{Success: true})
}
