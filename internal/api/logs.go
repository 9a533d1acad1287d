package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/devup/internal/api/models"
	"github.com/smazurov/devup/internal/logging"
)

// registerLogRoutes registers the recent log history endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Newest entries from the in-memory log history, oldest first",
		Tags:        []string{"logs"},
	}, func(ctx context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		history := logging.History().Last(input.Limit)

		entries := make([]models.LogEntry, 0, len(history))
		for _, entry := range history {
			entries = append(entries, models.LogEntry{
				Timestamp:  entry.Timestamp,
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		}

		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
