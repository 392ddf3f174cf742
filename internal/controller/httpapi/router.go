package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter собирает маршруты сервиса
func NewRouter(h *Handler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(observeMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/internal/maintenance/run", h.RunMaintenance).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/confirm", h.ConfirmAppointment).Methods(http.MethodPatch)
	api.HandleFunc("/appointments/{id}/reject", h.RejectAppointment).Methods(http.MethodPatch)
	api.HandleFunc("/appointments/{id}/cancel", h.CancelAppointment).Methods(http.MethodPatch)
	api.HandleFunc("/appointments/{id}/complete", h.CompleteAppointment).Methods(http.MethodPatch)
	api.HandleFunc("/appointments/{id}/reschedule", h.RescheduleAppointment).Methods(http.MethodPatch)
	api.HandleFunc("/appointments/{id}/notes", h.UpdateNotes).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{id}/comments", h.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/comments", h.ListComments).Methods(http.MethodGet)

	api.HandleFunc("/slots", h.GetSlots).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)

	api.HandleFunc("/recurrence-rules", h.CreateRule).Methods(http.MethodPost)
	api.HandleFunc("/recurrence-rules", h.ListRules).Methods(http.MethodGet)
	api.HandleFunc("/recurrence-rules/{id}", h.DeactivateRule).Methods(http.MethodDelete)

	api.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)

	return r
}
