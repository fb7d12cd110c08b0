package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/poll"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = 25 * time.Second
)

// Message types sent over a snapshot stream
const (
	streamMessageSnapshot        = "snapshot"
	streamMessageError           = "error"
	streamMessageUnauthenticated = "unauthenticated"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type streamMessage struct {
	Type      string    `json:"type"`
	Resource  string    `json:"resource"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// EndpointStream handles the 'GET /v1/stream/{resource}' endpoint.
// The connection is upgraded to a websocket that receives a message for every snapshot of the resource for as long
// as it stays open.
func (service *Service) EndpointStream(writer http.ResponseWriter, request *http.Request) {
	name := chi.URLParam(request, "resource")
	resources := service.Controller.Resources()

	var subscribe func(push func(*streamMessage)) func()
	switch name {
	case dashboard.ResourceStatus:
		subscribe = streamOf(resources.Status, func(status *fleet.SystemStatus) any {
			return dashboard.NewSummary(status)
		})
	case dashboard.ResourceEmulators:
		subscribe = streamOf(resources.Emulators, func(emulators []fleet.Emulator) any {
			return dashboard.NewEmulatorRows(emulators, service.Controller.PendingAction)
		})
	case dashboard.ResourceWorkstations:
		subscribe = streamOf(resources.Workstations, func(workstations []fleet.Workstation) any {
			return dashboard.NewWorkstationRows(workstations)
		})
	case dashboard.ResourceOperations:
		subscribe = streamOf(resources.Operations, func(operations []fleet.Operation) any {
			return dashboard.NewOperationRows(operations)
		})
	default:
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrUnknownResource(name))
		return
	}

	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// The upgrader already answered the request
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	service.Metrics.AddStreamClients(1)
	defer service.Metrics.AddStreamClients(-1)

	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()

	// Only the latest snapshot matters; a slow client skips intermediate ones
	messages := make(chan *streamMessage, 1)
	unsubscribe := subscribe(func(msg *streamMessage) {
		for {
			select {
			case messages <- msg:
				return
			default:
			}
			select {
			case <-messages:
			default:
			}
		}
	})
	defer unsubscribe()

	go service.readStream(conn, cancel)

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case msg := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("resource", name).Msg("could not write stream message")
				return
			}
			if msg.Type == streamMessageUnauthenticated {
				service.Controller.Check(client.ErrUnauthenticated)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
					time.Now().Add(streamWriteTimeout))
				return
			}
		}
	}
}

// readStream consumes the control messages of a stream connection and cancels the stream once it is closed
func (service *Service) readStream(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func streamOf[T any](resource *poll.Resource[T], view func(T) any) func(push func(*streamMessage)) func() {
	return func(push func(*streamMessage)) func() {
		return resource.Subscribe(func(snapshot poll.Snapshot[T]) {
			msg := &streamMessage{
				Type:      streamMessageSnapshot,
				Resource:  resource.Name(),
				FetchedAt: snapshot.FetchedAt,
			}
			switch {
			case client.IsUnauthenticated(snapshot.Err):
				msg.Type = streamMessageUnauthenticated
				msg.Error = client.Message(snapshot.Err)
			case snapshot.Err != nil:
				msg.Type = streamMessageError
				msg.Error = client.Message(snapshot.Err)
				msg.Data = view(snapshot.Value)
			default:
				msg.Data = view(snapshot.Value)
			}
			push(msg)
		})
	}
}
