package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	getactionlog "factory-dashboard/http-server/actionlog/get"
	getassignments "factory-dashboard/http-server/assignments/get"
	removeassignments "factory-dashboard/http-server/assignments/remove"
	saveassignments "factory-dashboard/http-server/assignments/save"
	getattendance "factory-dashboard/http-server/attendance/get"
	removeattendance "factory-dashboard/http-server/attendance/remove"
	saveattendance "factory-dashboard/http-server/attendance/save"
	getdashboard "factory-dashboard/http-server/dashboard/get"
	getmolds "factory-dashboard/http-server/molds/get"
	removemolds "factory-dashboard/http-server/molds/remove"
	savemolds "factory-dashboard/http-server/molds/save"
	getng "factory-dashboard/http-server/ng/get"
	removeng "factory-dashboard/http-server/ng/remove"
	saveng "factory-dashboard/http-server/ng/save"
	getproduction "factory-dashboard/http-server/production/get"
	updateproduction "factory-dashboard/http-server/production/update"
	"factory-dashboard/http-server/subscribe"
	"factory-dashboard/internal/config"
	"factory-dashboard/internal/metrics"
	"factory-dashboard/internal/middleware/auth"
	mwmetrics "factory-dashboard/internal/middleware/metrics"
	"factory-dashboard/internal/middleware/session"
)

func routes(cfg config.Config, log *slog.Logger, reg *prometheus.Registry, m *metrics.Metrics, svc services) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderUserID},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	//ip пользователя
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(session.Middleware)
	router.Use(mwmetrics.Instrument(m))

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// загруженные фото сотрудников и пресс-форм
	// при внешнем public_url файлы раздаёт другой сервер
	if blobPrefix := strings.TrimRight(cfg.Blob.PublicURL, "/"); strings.HasPrefix(blobPrefix, "/") {
		router.Handle(blobPrefix+"/*", http.StripPrefix(blobPrefix, http.FileServer(http.Dir(cfg.Blob.Dir))))
	}

	router.Route("/api", func(r chi.Router) {
		// модели по участкам, из них строятся все выпадающие списки
		r.Get("/assignments", getassignments.GetAssignments(log, svc.assignments))
		r.Get("/assignments/{area}", getassignments.GetAssignment(log, svc.assignments))
		r.Put("/assignments/{area}", saveassignments.SaveAssignment(log, svc.assignments))

		// выпуск по часовым слотам
		r.Get("/production", getproduction.GetProduction(log, svc.production))
		r.Get("/production/chart", getproduction.GetChart(log, svc.production))
		r.Get("/production/areas", getproduction.GetAreasChart(log, svc.assignments, svc.production))
		r.Get("/production/export", getproduction.ExportProduction(log, svc.production))
		r.Put("/production/slot", updateproduction.UpdateSlot(log, svc.production))
		r.Post("/production/flush", updateproduction.Flush(log, svc.production))

		// посещаемость
		r.Get("/attendance", getattendance.GetEmployees(log, svc.attendance))
		r.Get("/attendance/summary", getattendance.GetSummary(log, svc.attendance))
		r.Put("/attendance/employee", saveattendance.SaveEmployee(log, svc.attendance))
		r.Put("/attendance/shifts", saveattendance.SaveShifts(log, svc.attendance))
		r.Delete("/attendance/shifts", removeattendance.RemoveShifts(log, svc.attendance))
		r.Post("/attendance/photo", saveattendance.UploadPhoto(log, svc.attendance))

		// брак
		r.Get("/ng", getng.GetNG(log, svc.ng))
		r.Get("/ng/chart", getng.GetChart(log, svc.ng))
		r.Get("/ng/export", getng.ExportNG(log, svc.ng))
		r.Put("/ng/entry", saveng.RecordEntry(log, svc.ng))
		r.Delete("/ng/entry", removeng.DeleteEntry(log, svc.ng))
		r.Post("/ng/import", saveng.ImportNG(log, svc.ng))

		// пресс-формы
		r.Get("/molds", getmolds.GetMolds(log, svc.molds))
		r.Get("/molds/export", getmolds.ExportMolds(log, svc.molds))
		r.Post("/molds/import", savemolds.ImportMolds(log, svc.molds))
		r.Get("/molds/{id}", getmolds.GetMold(log, svc.molds))
		r.Post("/molds", savemolds.CreateMold(log, svc.molds))
		r.Put("/molds/{id}", savemolds.UpdateMold(log, svc.molds))
		r.Post("/molds/{id}/image", savemolds.UploadImage(log, svc.molds))

		r.Get("/dashboard", getdashboard.GetSummary(log, svc.dashboard))
		r.Get("/subscribe", subscribe.Subscribe(log, svc.tree))

		// удаление только под админом
		r.Group(func(admin chi.Router) {
			admin.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))
			admin.Delete("/assignments/{area}", removeassignments.DeleteAssignment(log, svc.assignments))
			admin.Delete("/molds/{id}", removemolds.DeleteMold(log, svc.molds))
			admin.Get("/action-logs", getactionlog.GetActionLogs(log, svc.db))
		})
	})

	return router
}
