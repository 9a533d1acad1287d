package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/devup/internal/api/models"
	"github.com/smazurov/devup/internal/process"
)

func (s *Server) registerProcessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/api/processes",
		Summary:     "List Processes",
		Description: "Current phase, address and exit status of every managed process",
		Tags:        []string{"processes"},
	}, func(ctx context.Context, input *struct{}) (*models.ProcessListResponse, error) {
		list := s.processList()
		return &models.ProcessListResponse{
			Body: models.ProcessListData{
				Processes: list,
				Count:     len(list),
				AllReady:  allReady(list),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/api/processes/{name}",
		Summary:     "Get Process",
		Description: "Status of a single managed process",
		Tags:        []string{"processes"},
		Errors:      []int{404},
	}, func(ctx context.Context, input *models.ProcessRequest) (*models.ProcessResponse, error) {
		for _, p := range s.processList() {
			if p.Name == input.Name {
				return &models.ProcessResponse{Body: p}, nil
			}
		}
		return nil, huma.Error404NotFound("process not found: " + input.Name)
	})
}

func (s *Server) processList() []models.ProcessStatus {
	if s.processes == nil {
		return []models.ProcessStatus{}
	}
	snapshot := s.processes.Snapshot()
	list := make([]models.ProcessStatus, 0, len(snapshot))
	for _, st := range snapshot {
		list = append(list, toProcessStatus(st))
	}
	return list
}

func toProcessStatus(st process.Status) models.ProcessStatus {
	out := models.ProcessStatus{
		Name:    st.Name,
		Phase:   string(st.Phase),
		PID:     st.PID,
		Address: st.Address,
	}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt
		out.StartedAt = &t
	}
	if !st.ReadyAt.IsZero() {
		t := st.ReadyAt
		out.ReadyAt = &t
	}
	if st.Exited {
		code := st.ExitCode
		out.ExitCode = &code
	}
	if st.LastError != nil {
		out.LastError = st.LastError.Error()
	}
	return out
}

func allReady(list []models.ProcessStatus) bool {
	if len(list) == 0 {
		return false
	}
	for _, p := range list {
		if p.Phase != string(process.PhaseReady) {
			return false
		}
	}
	return true
}
