package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dealerdesk/internal/config"
	"dealerdesk/internal/database"
	"dealerdesk/internal/domain"
	"dealerdesk/internal/export"
	"dealerdesk/internal/metrics"
	"dealerdesk/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// HTTPServer exposes the reservation engine over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	calendar domain.CalendarService
	exporter *export.Exporter
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, bookings domain.BookingService, calendar domain.CalendarService, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		calendar: calendar,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/availability", srv.handleAvailability)
	mux.HandleFunc("/api/v1/calendar", srv.handleCalendar)
	mux.HandleFunc("/api/v1/bookings/test-drive", srv.handleCreateTestDrive)
	mux.HandleFunc("/api/v1/bookings/service", srv.handleCreateService)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBooking)
	mux.HandleFunc("/api/v1/export", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the full middleware-wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type customerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

func (c customerRequest) model() models.Customer {
	return models.Customer{
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
	}
}

type testDriveRequest struct {
	VehicleID string          `json:"vehicle_id" validate:"required"`
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot  string          `json:"time_slot" validate:"required"`
	Customer  customerRequest `json:"customer" validate:"required"`
}

type serviceBookingRequest struct {
	ServiceTypeIDs []string        `json:"service_type_ids" validate:"required,min=1,dive,required"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot       string          `json:"time_slot" validate:"required"`
	Customer       customerRequest `json:"customer" validate:"required"`
	VehicleInfo    string          `json:"vehicle_info"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
	Reason string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	if !models.ValidResourceKind(kind) {
		writeError(w, http.StatusBadRequest, "kind must be test_drive or service")
		return
	}
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	date, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if slot := strings.TrimSpace(r.URL.Query().Get("slot")); slot != "" {
		availability, err := s.bookings.CheckAvailability(r.Context(), kind, resourceID, date, slot)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availability)
		return
	}

	slots, err := s.bookings.GetAvailability(r.Context(), kind, resourceID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format(models.DateLayout),
		"slots": slots,
	})
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, err := parseDateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := models.CalendarOptions{
		ResourceKind:     strings.TrimSpace(r.URL.Query().Get("kind")),
		IncludeCancelled: r.URL.Query().Get("include_cancelled") == "true",
	}
	if opts.ResourceKind != "" && !models.ValidResourceKind(opts.ResourceKind) {
		writeError(w, http.StatusBadRequest, "kind must be test_drive or service")
		return
	}

	view, err := s.calendar.BuildCalendar(r.Context(), start, end, opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleCreateTestDrive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req testDriveRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)
	booking, err := s.bookings.CreateTestDriveBooking(r.Context(), req.VehicleID, date, req.TimeSlot, req.Customer.model())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	metrics.IncBookingCreated(models.KindTestDrive)
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req serviceBookingRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)
	result, err := s.bookings.CreateServiceBooking(r.Context(), req.ServiceTypeIDs, date, req.TimeSlot, req.Customer.model(), req.VehicleInfo)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	metrics.IncBookingCreated(models.KindService)
	writeJSON(w, http.StatusCreated, result)
}

// handleBooking routes /api/v1/bookings/{id}, /{id}/cancel and /{id}/status.
func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGetBooking(w, r, id)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		s.handleCancel(w, r, id)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		s.handleStatus(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, id int64) {
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request, id int64) {
	var req cancelRequest
	if r.ContentLength > 0 && !s.decodeBody(w, r, &req) {
		return
	}

	booking, err := s.bookings.CancelBooking(r.Context(), id, req.Reason)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request, id int64) {
	var req statusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var (
		booking *models.Booking
		err     error
	)
	switch req.Status {
	case models.StatusConfirmed:
		booking, err = s.bookings.ConfirmBooking(r.Context(), id)
	case models.StatusCompleted:
		booking, err = s.bookings.CompleteBooking(r.Context(), id)
	case models.StatusCancelled:
		booking, err = s.bookings.CancelBooking(r.Context(), id, req.Reason)
	case models.StatusNoShow:
		booking, err = s.bookings.MarkNoShow(r.Context(), id)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is not configured")
		return
	}

	start, err := parseDateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := s.exporter.Write(r.Context(), w, start, end); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

// decodeBody decodes and validates a JSON request body, writing a 400
// on failure. Returns false when a response was already written.
func (s *HTTPServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case database.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case database.IsConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format; expected YYYY-MM-DD", name)
	}
	return date, nil
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
