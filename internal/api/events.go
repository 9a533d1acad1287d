package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/devup/internal/api/models"
	"github.com/smazurov/devup/internal/events"
)

// registerSSERoutes registers the lifecycle event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Current process list followed by real-time lifecycle events",
		Tags:        []string{"events"},
	}, map[string]any{
		"snapshot":         models.ProcessListData{},
		"state-changed":    events.StateChangedEvent{},
		"process-ready":    events.ReadyEvent{},
		"all-ready":        events.AllReadyEvent{},
		"launch-failed":    events.LaunchFailedEvent{},
		"watch-error":      events.WatchErrorEvent{},
		"shutdown-started": events.ShutdownStartedEvent{},
		"process-stopped":  events.StoppedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		if s.eventBus != nil {
			unsubscribers := []func(){
				events.SubscribeToChannel[events.StateChangedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.ReadyEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.AllReadyEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.LaunchFailedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.WatchErrorEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.ShutdownStartedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.StoppedEvent](s.eventBus, eventCh),
			}
			defer func() {
				for _, unsub := range unsubscribers {
					unsub()
				}
			}()
		}

		// Subscribed before the snapshot so nothing between the two is lost.
		list := s.processList()
		if err := send.Data(models.ProcessListData{
			Processes: list,
			Count:     len(list),
			AllReady:  allReady(list),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
