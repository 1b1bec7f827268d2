package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicops/clinic-backoffice/internal/appointment"
	"github.com/clinicops/clinic-backoffice/internal/availability"
	"github.com/clinicops/clinic-backoffice/internal/doctor"
	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/report"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Availability *availability.Service
	Doctors      *doctor.Service
	Reports      *report.Service
	Suppressor   notify.Suppressor
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Registry     *prometheus.Registry
	Logger       *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ClinicScopeMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(cfg.Appointments))
			r.Get("/{appointmentID}", getAppointmentHandler(cfg.Appointments))
			r.Post("/{appointmentID}/approve", approveAppointmentHandler(cfg.Appointments))
			r.Post("/{appointmentID}/decline", declineAppointmentHandler(cfg.Appointments))
			r.Post("/{appointmentID}/complete", completeAppointmentHandler(cfg.Appointments))
			r.Post("/{appointmentID}/prescription", savePrescriptionHandler(cfg.Appointments))
			r.Post("/{appointmentID}/billing", saveBillingHandler(cfg.Appointments))
			r.Patch("/{appointmentID}/billing", patchBillingHandler(cfg.Appointments))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", listDoctorsHandler(cfg.Doctors))
			r.Post("/", createDoctorHandler(cfg.Doctors))
			r.Put("/{doctorID}", updateDoctorHandler(cfg.Doctors))
			r.Delete("/{doctorID}", deleteDoctorHandler(cfg.Doctors))

			r.Route("/{doctorID}/availability", func(r chi.Router) {
				r.Put("/recurring", setRecurringSlotHandler(cfg.Availability))
				r.Put("/override", setDateOverrideHandler(cfg.Availability))
				r.Post("/generate", generateSlotsHandler(cfg.Availability))
				r.Get("/month", monthAvailabilityHandler(cfg.Availability))
				r.Delete("/date", clearDateAvailabilityHandler(cfg.Availability))
				r.Delete("/recurring", clearWeekdayAvailabilityHandler(cfg.Availability))
			})
		})

		r.Get("/specializations", listSpecializationsHandler(cfg.Doctors))
		r.Get("/clinic", clinicNameHandler(cfg.Reports))

		r.Route("/reports", func(r chi.Router) {
			r.Get("/daily", dailyStatsHandler(cfg.Reports))
			r.Post("/daily/refresh", refreshDailyStatsHandler(cfg.Reports))
			r.Get("/doctors", doctorReportsHandler(cfg.Reports))
		})

		r.Post("/feed/suppress", suppressFeedHandler(cfg.Suppressor))
	})

	return r
}
