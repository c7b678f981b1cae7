package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipepredictor/internal/workflow"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Templates parses the HTML templates for the ingredient form.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))
}

// WorkflowRegistry defines the interface for mounting and finding workflows.
type WorkflowRegistry interface {
	Mount() *workflow.Workflow
	Get(id string) (*workflow.Workflow, error)
	Unmount(id string) error
}

// Handler handles HTTP requests.
type Handler struct {
	Workflows WorkflowRegistry
	Logger    *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(workflows WorkflowRegistry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Workflows: workflows, Logger: logger}
}

// RegisterRoutes mounts the form pages and the workflow API on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/forms/:id", h.Form)
	r.POST("/forms/:id/predict", h.FormPredict)
	r.POST("/forms/:id/clear", h.FormClear)

	r.POST("/workflows", h.Mount)
	r.GET("/workflows/:id", h.GetWorkflow)
	r.POST("/workflows/:id/predict", h.Predict)
	r.POST("/workflows/:id/clear", h.Clear)
	r.DELETE("/workflows/:id", h.Unmount)
}

// PredictRequest is the body of a predict call.
type PredictRequest struct {
	Ingredients string `json:"ingredients" form:"ingredients"`
}

// WorkflowResponse carries a workflow ID and what its form should show.
type WorkflowResponse struct {
	ID   string        `json:"id"`
	View workflow.View `json:"view"`
}

func respond(c *gin.Context, status int, w *workflow.Workflow) {
	c.JSON(status, WorkflowResponse{ID: w.ID(), View: workflow.Render(w.State())})
}

// lookup resolves the :id path parameter, answering 404 when it is unknown.
func (h *Handler) lookup(c *gin.Context) (*workflow.Workflow, bool) {
	w, err := h.Workflows.Get(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "Workflow not found")
		return nil, false
	}
	return w, true
}

// Mount creates a new workflow for a freshly rendered form.
func (h *Handler) Mount(c *gin.Context) {
	w := h.Workflows.Mount()
	respond(c, http.StatusCreated, w)
}

// GetWorkflow returns the current view of a workflow.
func (h *Handler) GetWorkflow(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, w)
}

// Predict submits the ingredient list of a workflow. With wait=true the call
// returns once the prediction has settled.
func (h *Handler) Predict(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}

	var req PredictRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	done, err := w.Submit(req.Ingredients)
	if err != nil {
		h.submitError(c, w, err)
		return
	}

	if c.Query("wait") != "true" {
		respond(c, http.StatusAccepted, w)
		return
	}

	select {
	case <-done:
		respond(c, http.StatusOK, w)
	case <-c.Request.Context().Done():
		h.Logger.Debug("client went away before prediction settled", zap.String("workflow", w.ID()))
	}
}

func (h *Handler) submitError(c *gin.Context, w *workflow.Workflow, err error) {
	var vErr *workflow.ValidationError
	switch {
	case errors.As(err, &vErr):
		respond(c, http.StatusUnprocessableEntity, w)
	case errors.Is(err, workflow.ErrRequestInFlight):
		respond(c, http.StatusConflict, w)
	case errors.Is(err, workflow.ErrWorkflowClosed):
		c.String(http.StatusNotFound, "Workflow not found")
	default:
		h.Logger.Error("submit failed", zap.String("workflow", w.ID()), zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

// Clear resets a workflow to its idle state.
func (h *Handler) Clear(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	w.Clear()
	respond(c, http.StatusOK, w)
}

// Unmount discards a workflow.
func (h *Handler) Unmount(c *gin.Context) {
	if err := h.Workflows.Unmount(c.Param("id")); err != nil {
		c.String(http.StatusNotFound, "Workflow not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// Index mounts a workflow and sends the browser to its form.
func (h *Handler) Index(c *gin.Context) {
	w := h.Workflows.Mount()
	c.Redirect(http.StatusSeeOther, "/forms/"+w.ID())
}

// Form renders the HTML ingredient form of a workflow.
func (h *Handler) Form(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"ID":   w.ID(),
		"View": workflow.Render(w.State()),
	})
}

// FormPredict handles the Predict button of the HTML form.
func (h *Handler) FormPredict(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}

	done, err := w.Submit(c.PostForm("ingredients"))
	var vErr *workflow.ValidationError
	switch {
	case err == nil:
		select {
		case <-done:
		case <-c.Request.Context().Done():
			return
		}
	case errors.As(err, &vErr), errors.Is(err, workflow.ErrRequestInFlight):
		// The form itself shows the message or the pending request.
	default:
		h.submitError(c, w, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/forms/"+w.ID())
}

// FormClear handles the Clear button of the HTML form.
func (h *Handler) FormClear(c *gin.Context) {
	w, ok := h.lookup(c)
	if !ok {
		return
	}
	w.Clear()
	c.Redirect(http.StatusSeeOther, "/forms/"+w.ID())
}
