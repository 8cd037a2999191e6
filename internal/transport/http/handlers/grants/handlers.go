package grantshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/grants"
	"workforce/internal/domain/notifications"
	"workforce/internal/platform/jobs"
	"workforce/internal/platform/metrics"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

const maxUploadMultipartBytes = 8 * 1024 * 1024

type Handler struct {
	Service     *grants.Service
	Perms       middleware.PermissionStore
	Notify      *notifications.Service
	Audit       *audit.Service
	Jobs        *jobs.Service
	Metrics     *metrics.Collector
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(service *grants.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service, collector *metrics.Collector, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{
		Service:     service,
		Perms:       perms,
		Notify:      notify,
		Audit:       auditSvc,
		Jobs:        jobsSvc,
		Metrics:     collector,
		Idempotency: idem,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/grants", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/", h.handleListGrants)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/{grantID}", h.handleGetGrant)
		r.With(middleware.RequirePermission(auth.PermLeaveGrant, h.Perms)).Post("/expiry/run", h.handleRunExpiry)

		r.Route("/wizard", func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermLeaveGrant, h.Perms))
			r.Post("/", h.handleOpen)
			r.Get("/", h.handleState)
			r.Delete("/", h.handleCancel)
			r.Put("/title", h.handleSetTitle)
			r.Put("/type", h.handleSelectType)
			r.Put("/employees", h.handleSelectEmployees)
			r.Put("/mode", h.handleSetMode)
			r.Put("/details", h.handleSetDetails)
			r.Post("/advance", h.handleAdvance)
			r.Post("/retreat", h.handleRetreat)
			r.Get("/template", h.handleTemplate)
			r.Post("/upload", h.handleUpload)
			r.Get("/summary.pdf", h.handleSummaryPDF)
			r.Post("/submit", h.handleSubmit)
		})
	})
}

// failGrantError translates domain errors into API responses. Validation and
// upload rejections carry their full issue lists in the details payload.
func failGrantError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var validationErr *grants.ValidationError
	if errors.As(err, &validationErr) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "validation_failed", validationErr.Error(), map[string]any{
			"step":   validationErr.Step,
			"issues": validationErr.Issues,
		}, reqID)
		return
	}

	var uploadErr *grants.UploadError
	if errors.As(err, &uploadErr) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "upload_rejected", uploadErr.Error(), map[string]any{
			"rows": uploadErr.Rows,
		}, reqID)
		return
	}

	var submitErr *grants.SubmitError
	if errors.As(err, &submitErr) {
		status := http.StatusServiceUnavailable
		switch submitErr.Code {
		case grants.SubmitConflict:
			status = http.StatusConflict
		case grants.SubmitRejected:
			status = http.StatusUnprocessableEntity
		}
		api.FailWithDetails(w, status, submitErr.Code, submitErr.Message, map[string]any{
			"retryable": submitErr.Retryable,
		}, reqID)
		return
	}

	switch {
	case errors.Is(err, grants.ErrNoSession):
		api.Fail(w, http.StatusNotFound, "no_session", "no active wizard session", reqID)
	case errors.Is(err, grants.ErrGrantNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "grant not found", reqID)
	case errors.Is(err, grants.ErrSubmitInFlight):
		api.Fail(w, http.StatusConflict, "submit_in_flight", "submission in progress, draft is locked", reqID)
	case errors.Is(err, grants.ErrAtFirstStep), errors.Is(err, grants.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", reqID)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	types, err := h.Service.ListTypes(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_types_failed", "failed to list leave types", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	wizard, err := h.Service.Open(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "wizard_open_failed", "failed to open grant wizard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.Cancel(user.TenantID, user.UserID); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "cancelled"}, middleware.GetRequestID(r.Context()))
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleSetTitle(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	var payload titleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := wizard.SetTitle(payload.Title); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

type typeRequest struct {
	LeaveTypeID string `json:"leaveTypeId"`
}

func (h *Handler) handleSelectType(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	var payload typeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := wizard.SelectLeaveType(payload.LeaveTypeID); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

type employeesRequest struct {
	EmployeeIDs []string `json:"employeeIds"`
	All         bool     `json:"all"`
}

func (h *Handler) handleSelectEmployees(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	var payload employeesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	var err error
	if payload.All {
		err = wizard.SelectAllEmployees()
	} else {
		err = wizard.SelectEmployees(payload.EmployeeIDs)
	}
	if err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	var payload modeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	mode := grants.GrantMode(payload.Mode)
	if mode != grants.ModeUniform && mode != grants.ModeIndividual {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "mode must be uniform or individual", middleware.GetRequestID(r.Context()))
		return
	}
	if err := wizard.SetMode(mode); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

type carryoverPayload struct {
	Kind   string `json:"kind"`
	Months int    `json:"months"`
	Days   int    `json:"days"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Date   string `json:"date"`
}

type detailsRequest struct {
	DaysGranted float64          `json:"daysGranted"`
	PeriodStart string           `json:"periodStart"`
	PeriodEnd   string           `json:"periodEnd"`
	Carryover   carryoverPayload `json:"carryover"`
}

func (h *Handler) handleSetDetails(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	var payload detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	v.Required("carryover.kind", payload.Carryover.Kind, "carryover kind is required")

	rule := grants.CarryoverRule{
		Kind:   grants.CarryoverKind(payload.Carryover.Kind),
		Months: payload.Carryover.Months,
		Days:   payload.Carryover.Days,
		Month:  time.Month(payload.Carryover.Month),
		Day:    payload.Carryover.Day,
	}
	if payload.Carryover.Date != "" {
		date, ok := v.Date("carryover.date", payload.Carryover.Date)
		if ok {
			rule.Date = date
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := wizard.SetUniformDetails(payload.DaysGranted, start, end, rule); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}
	if err := wizard.Advance(); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}
	if err := wizard.Retreat(); err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-grant-template.csv")
	if err := wizard.WriteTemplate(w); err != nil {
		slog.Warn("grant template write failed", "err", err)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMultipartBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart payload", middleware.GetRequestID(r.Context()))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "csv file is required", middleware.GetRequestID(r.Context()))
		return
	}
	defer file.Close()

	if err := wizard.ApplyUpload(file); err != nil {
		if h.Metrics != nil {
			var uploadErr *grants.UploadError
			if errors.As(err, &uploadErr) {
				h.Metrics.RecordUploadRejected()
			}
		}
		failGrantError(w, r, err)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "leave.grant.upload", "grant_draft", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{
		"rows": len(wizard.State().Lines),
	}); err != nil {
		slog.Warn("audit leave.grant.upload failed", "err", err)
	}
	api.Success(w, wizard.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	data, err := wizard.SummaryPDF()
	if err != nil {
		failGrantError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-grant-summary.pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Warn("grant summary write failed", "err", err)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	wizard, _ := h.wizard(w, r)
	if wizard == nil {
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	var requestHash string
	if idemKey != "" && h.Idempotency != nil {
		snapshot, err := json.Marshal(wizard.State())
		if err == nil {
			requestHash = middleware.RequestHash(snapshot)
			stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, "leave.grants.submit", idemKey, requestHash)
			if err != nil {
				if errors.Is(err, middleware.ErrIdempotencyConflict) {
					api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different request", middleware.GetRequestID(r.Context()))
					return
				}
				slog.Warn("idempotency check failed", "err", err)
			} else if found {
				api.Created(w, stored, middleware.GetRequestID(r.Context()))
				return
			}
		}
	}

	grant, err := h.Service.Submit(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		failGrantError(w, r, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordGrantSubmitted()
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "leave.grant.submit", "leave_grant", grant.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{
		"title":     grant.Title,
		"mode":      grant.Mode,
		"lineCount": len(grant.Lines),
	}); err != nil {
		slog.Warn("audit leave.grant.submit failed", "err", err)
	}
	h.notifyGranted(r, user.TenantID, grant)

	if idemKey != "" && h.Idempotency != nil && requestHash != "" {
		response, err := json.Marshal(grant)
		if err == nil {
			if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, "leave.grants.submit", idemKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}

	api.Created(w, grant, middleware.GetRequestID(r.Context()))
}

func (h *Handler) notifyGranted(r *http.Request, tenantID string, grant *grants.LeaveGrant) {
	if h.Notify == nil {
		return
	}
	userIDs, err := h.Service.GrantedUserIDs(r.Context(), tenantID, grant.EmployeeIDs)
	if err != nil {
		slog.Warn("grant notification lookup failed", "grantId", grant.ID, "err", err)
		return
	}
	for _, userID := range userIDs {
		if err := h.Notify.Create(r.Context(), tenantID, userID, notifications.TypeLeaveGranted, "Leave granted", "You have been granted leave under \""+grant.Title+"\"."); err != nil {
			slog.Warn("grant notification failed", "grantId", grant.ID, "err", err)
		}
	}
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	list, total, err := h.Service.ListGrants(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "grants_list_failed", "failed to list grants", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	grantID := chi.URLParam(r, "grantID")
	grant, err := h.Service.GetGrant(r.Context(), user.TenantID, grantID)
	if err != nil {
		failGrantError(w, r, err)
		return
	}
	api.Success(w, grant, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunExpiry(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var result any
	var err error
	if h.Jobs != nil {
		result, err = h.Jobs.RunExpirySweep(r.Context())
	} else {
		var expired int64
		expired, err = h.Service.ExpireLines(r.Context(), time.Now().UTC())
		result = map[string]any{"linesExpired": expired}
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "expiry_failed", "failed to run expiry sweep", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "leave.grant.expiry.run", "leave_grant_line", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), result); err != nil {
		slog.Warn("audit leave.grant.expiry.run failed", "err", err)
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

// wizard resolves the caller's active session, writing the error response
// itself when there is none.
func (h *Handler) wizard(w http.ResponseWriter, r *http.Request) (*grants.Wizard, error) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return nil, nil
	}
	wizard, err := h.Service.Wizard(user.TenantID, user.UserID)
	if err != nil {
		failGrantError(w, r, err)
		return nil, err
	}
	return wizard, nil
}
