package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/service"
)

// Handler HTTP-обработчики поверх сервисного слоя
type Handler struct {
	appointments  *service.AppointmentService
	recurrence    *service.RecurrenceService
	maintenance   *service.MaintenanceService
	notifications *service.NotificationService
	users         *service.UserService
	logger        *zap.Logger
}

func NewHandler(
	appointments *service.AppointmentService,
	recurrence *service.RecurrenceService,
	maintenance *service.MaintenanceService,
	notifications *service.NotificationService,
	users *service.UserService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		appointments:  appointments,
		recurrence:    recurrence,
		maintenance:   maintenance,
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
}

type createAppointmentRequest struct {
	StudentID *int64    `json:"student_id,omitempty"`
	CoachID   *int64    `json:"coach_id,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Type      string    `json:"type,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

// CreateAppointment POST /api/v1/appointments
// Ученик записывается сам; инструктор указывает student_id и получает
// сразу подтверждённую запись.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := h.users.FindUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	p := service.CreateParams{
		Mode:     service.CreationModeStudent,
		Window:   service.TimeWindow{Start: req.StartTime, End: req.EndTime},
		Type:     model.AppointmentType(req.Type),
		Location: req.Location,
		Notes:    req.Notes,
	}

	if caller.Role == model.UserRoleCoach {
		if req.StudentID == nil {
			respondError(w, http.StatusBadRequest, "student_id is required for coach bookings")
			return
		}
		p.Mode = service.CreationModeCoach
		p.StudentID = *req.StudentID
		coachID := userID
		p.CoachID = &coachID
	} else {
		p.StudentID = userID
		p.CoachID = req.CoachID
	}

	a, err := h.appointments.Create(r.Context(), p)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// GetAppointment GET /api/v1/appointments/{id}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.appointments.GetByID(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ListAppointments GET /api/v1/appointments?from=&to=&status=
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	caller, err := h.users.FindUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	f := model.AppointmentFilter{UserID: userID, Role: caller.Role}

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from parameter, expected RFC3339")
			return
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to parameter, expected RFC3339")
			return
		}
		f.To = &t
	}
	if raw := q.Get("status"); raw != "" {
		st := model.AppointmentStatus(raw)
		f.Status = &st
	}

	list, err := h.appointments.ListForUser(r.Context(), f)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

type notesRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// ConfirmAppointment PATCH /api/v1/appointments/{id}/confirm
func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, userID int64, notes *string) (*model.Appointment, error) {
		return h.appointments.Confirm(r.Context(), id, userID, notes)
	})
}

// RejectAppointment PATCH /api/v1/appointments/{id}/reject
func (h *Handler) RejectAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, userID int64, notes *string) (*model.Appointment, error) {
		return h.appointments.Reject(r.Context(), id, userID, notes)
	})
}

// CancelAppointment PATCH /api/v1/appointments/{id}/cancel
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, userID int64, notes *string) (*model.Appointment, error) {
		return h.appointments.Cancel(r.Context(), id, userID, notes)
	})
}

// CompleteAppointment PATCH /api/v1/appointments/{id}/complete
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, userID int64, notes *string) (*model.Appointment, error) {
		return h.appointments.Complete(r.Context(), id, userID, notes, nil)
	})
}

func (h *Handler) transition(
	w http.ResponseWriter, r *http.Request,
	fn func(id uuid.UUID, userID int64, notes *string) (*model.Appointment, error),
) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req notesRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	a, err := fn(id, userID, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Notes     *string   `json:"notes,omitempty"`
}

// RescheduleAppointment PATCH /api/v1/appointments/{id}/reschedule
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.appointments.Reschedule(r.Context(), id, userID,
		service.TimeWindow{Start: req.StartTime, End: req.EndTime}, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// UpdateNotes PUT /api/v1/appointments/{id}/notes
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.appointments.UpdateNotes(r.Context(), id, userID, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// AddComment POST /api/v1/appointments/{id}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	c, err := h.appointments.AddComment(r.Context(), id, userID, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// ListComments GET /api/v1/appointments/{id}/comments
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.appointments.ListComments(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetSlots GET /api/v1/slots?date=YYYY-MM-DD&coach_id=
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	q := r.URL.Query()
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date parameter, expected YYYY-MM-DD")
		return
	}

	p := service.SlotsParams{Date: date, RequesterID: userID}
	if raw := q.Get("coach_id"); raw != "" {
		coachID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid coach_id parameter")
			return
		}
		p.CoachID = &coachID
	}

	slots, err := h.appointments.Slots(r.Context(), p)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, slots)
}

// GetStats GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	caller, err := h.users.FindUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	st, err := h.appointments.Stats(r.Context(), userID, caller.Role)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

type createRuleRequest struct {
	StudentID int64     `json:"student_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// CreateRule POST /api/v1/recurrence-rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req createRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.recurrence.CreateRule(r.Context(), service.RecurrenceRuleParams{
		StudentID: req.StudentID,
		CoachID:   userID,
		Window:    service.TimeWindow{Start: req.StartTime, End: req.EndTime},
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// ListRules GET /api/v1/recurrence-rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	rules, err := h.recurrence.ListRulesForCoach(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// DeactivateRule DELETE /api/v1/recurrence-rules/{id}
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.recurrence.DeactivateRule(r.Context(), id, userID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications GET /api/v1/notifications?limit=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	list, err := h.notifications.ListForUser(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// RunMaintenance POST /internal/maintenance/run
// Ручной запуск прохода уборки. Если проход уже идёт — 409.
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	res, err := h.maintenance.Run(r.Context())
	if err != nil {
		h.logger.Error("Manual maintenance pass failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "maintenance pass failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Health GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}
