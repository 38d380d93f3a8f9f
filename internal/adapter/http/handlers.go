package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Strob0t/PlanForge/internal/domain/plan"
	"github.com/Strob0t/PlanForge/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Plans  *service.PlanService
	Health *service.HealthService
}

type goalRequest struct {
	Goal json.RawMessage `json:"goal"`
}

type submitRequest struct {
	Goal  json.RawMessage `json:"goal"`
	Tasks json.RawMessage `json:"tasks"`
}

type autoSaveResponse struct {
	Goal    string          `json:"goal"`
	Tasks   []plan.TaskItem `json:"tasks"`
	GoalID  int64           `json:"goalId"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
}

type submitResponse struct {
	Message string `json:"message"`
	GoalID  int64  `json:"goalId"`
}

type healthResponse struct {
	NodeStatus    string `json:"nodeStatus"`
	FastAPIStatus string `json:"fastApiStatus"`
	FastAPIURL    string `json:"fastApiUrl"`
}

// detach keeps the work running when the client goes away; request values
// such as the request ID are preserved.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// Plan handles POST /plan.
func (h *Handlers) Plan(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[goalRequest](w, r)
	if !ok {
		return
	}
	goal, err := goalString(req.Goal)
	if err != nil {
		writePlanError(w, r, err, "", "")
		return
	}

	res, err := h.Plans.Generate(detach(r), goal)
	if err != nil {
		writePlanError(w, r, err, "Failed to generate plan", h.Health.PlannerURL())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PlanAutoSave handles POST /plan/auto-save.
func (h *Handlers) PlanAutoSave(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[goalRequest](w, r)
	if !ok {
		return
	}
	goal, err := goalString(req.Goal)
	if err != nil {
		writePlanError(w, r, err, "", "")
		return
	}

	res, err := h.Plans.GenerateAndSave(detach(r), goal)
	if err != nil {
		writePlanError(w, r, err, "Failed to generate and save plan", h.Health.PlannerURL())
		return
	}
	writeJSON(w, http.StatusOK, autoSaveResponse{
		Goal:    res.Goal,
		Tasks:   res.Tasks,
		GoalID:  res.GoalID,
		Message: "Plan generated and saved successfully",
		Status:  "success",
	})
}

// PlanSubmit handles POST /plan/submit.
func (h *Handlers) PlanSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[submitRequest](w, r)
	if !ok {
		return
	}
	goal, err := goalString(req.Goal)
	if err != nil {
		writePlanError(w, r, err, "", "")
		return
	}
	tasks, err := taskList(req.Tasks)
	if err != nil {
		writePlanError(w, r, err, "", "")
		return
	}

	id, err := h.Plans.Submit(detach(r), goal, tasks)
	if err != nil {
		writePlanError(w, r, err, "Failed to save plan", h.Health.PlannerURL())
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Message: "Plan saved successfully", GoalID: id})
}

// HealthCheck handles GET /health. It answers 200 even when the planner is down.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.Health.Check(r.Context())

	planner := "unhealthy"
	if status.PlannerHealthy {
		planner = "healthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		NodeStatus:    "healthy",
		FastAPIStatus: planner,
		FastAPIURL:    status.PlannerURL,
	})
}

// TestDB handles GET /test-db.
func (h *Handlers) TestDB(w http.ResponseWriter, r *http.Request) {
	if err := h.Health.PingDatabase(r.Context()); err != nil {
		writePlanError(w, r, err, "Database connection failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "connected",
		"message": "Database connection successful",
	})
}

// Root handles GET / with a descriptor of the available endpoints.
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "planforge",
		"status":  "running",
		"endpoints": map[string]string{
			"POST /plan":           "Generate a plan for a goal",
			"POST /plan/auto-save": "Generate a plan and save it",
			"POST /plan/submit":    "Save a previously generated plan",
			"GET /health":          "Liveness of this service and the planner",
			"GET /test-db":         "Database connectivity check",
		},
	})
}
