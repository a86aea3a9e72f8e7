package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/auth"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/idempotency"
	"github.com/robertarktes/course-bookings/internal/observability"
)

type BookingService interface {
	Create(ctx context.Context, courseID, userID uuid.UUID) (domain.Booking, error)
	Cancel(ctx context.Context, bookingID, userID uuid.UUID) (bool, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*domain.BookingDetail, error)
	ListAll(ctx context.Context) ([]domain.BookingDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.BookingDetail, error)
	ListForCourse(ctx context.Context, courseID uuid.UUID) ([]domain.BookingDetail, error)
	HasUserBookedCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

type Handlers struct {
	bookings BookingService
	courses  domain.CourseStore
	idemp    *idempotency.Idempotency
	validate *validator.Validate
	logger   observability.Logger
	now      func() time.Time
}

func NewHandlers(bookings BookingService, courses domain.CourseStore, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		bookings: bookings,
		courses:  courses,
		idemp:    idemp,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
}

type createBookingRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type createCourseRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"required"`
	ImageURL       string   `json:"image_url" validate:"required,max=2048"`
	Level          string   `json:"level" validate:"required,max=255"`
	Category       string   `json:"category" validate:"required,max=255"`
	TotalSeats     *int     `json:"total_seats" validate:"required,min=0,max=100000"`
	AvailableSeats *int     `json:"available_seats" validate:"required,min=0,ltefield=TotalSeats"`
	Rating         *float64 `json:"rating" validate:"omitempty,min=0,max=5"`
	Duration       string   `json:"duration" validate:"omitempty,max=255"`
}

// decode reads a JSON body into dst and validates it. It writes the failure
// response itself and reports false when the request cannot proceed.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeFailure(w, http.StatusBadRequest, "Invalid request body", nil)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		writeFailure(w, http.StatusUnprocessableEntity, "Validation failed", fields)
		return false
	}
	return true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "uuid":
		return e.Field() + " must be a valid id"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "ltefield":
		return e.Field() + " must not exceed total_seats"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bookings retrieved successfully", newBookingResources(bookings))
}

func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	bookings, err := h.bookings.ListForUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bookings retrieved successfully", newBookingResources(bookings))
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, domain.MsgBookingNotFound, nil)
		return
	}
	d, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	// Other users' bookings are reported as missing so ids cannot be enumerated.
	p, _ := auth.PrincipalFromContext(r.Context())
	if d.UserID != p.UserID && !p.IsAdmin() {
		writeFailure(w, http.StatusNotFound, domain.MsgBookingNotFound, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "Booking retrieved successfully", newBookingResource(*d))
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var req createBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	courseID := uuid.MustParse(req.CourseID)
	fingerprint := "create-booking:" + courseID.String()

	key := r.Header.Get(IdempotencyKeyHeader)
	if key != "" {
		existing, err := h.idemp.Get(r.Context(), p.UserID.String(), key)
		if err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).WithError(err).Warn("idempotency lookup failed")
		}
		if existing != nil {
			if !existing.Matches(fingerprint) {
				writeFailure(w, http.StatusUnprocessableEntity, idempotency.ErrKeyReused.Error(), nil)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.Status)
			w.Write(existing.Result)
			return
		}
	}

	b, err := h.bookings.Create(r.Context(), courseID, p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	detail := domain.BookingDetail{Booking: b}
	if d, err := h.bookings.Get(r.Context(), b.ID); err == nil {
		detail = *d
	}
	data := writeSuccess(w, http.StatusCreated, "Course booked successfully", newBookingResource(detail))

	if key != "" {
		resp := idempotency.Response{Fingerprint: fingerprint, Status: http.StatusCreated, Result: data}
		if err := h.idemp.Set(r.Context(), p.UserID.String(), key, resp); err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).WithError(err).Warn("failed to store idempotent response")
		}
	}
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, "Update method is not allowed for bookings", nil)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, domain.MsgBookingNotFound, nil)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	cancelled, err := h.bookings.Cancel(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !cancelled {
		writeFailure(w, http.StatusNotFound, domain.MsgBookingNotFound, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "Booking cancelled successfully", nil)
}

func (h *Handlers) ListCourseBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, domain.MsgCourseNotFound, nil)
		return
	}
	if _, err := h.courses.GetCourse(r.Context(), id); err != nil {
		h.courseError(w, r, err)
		return
	}
	bookings, err := h.bookings.ListForCourse(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bookings retrieved successfully", newBookingResources(bookings))
}

func (h *Handlers) HasBookedCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, domain.MsgCourseNotFound, nil)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	booked, err := h.bookings.HasUserBookedCourse(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Booking status retrieved successfully", map[string]interface{}{
		"course_id": id,
		"booked":    booked,
	})
}

func (h *Handlers) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]courseResource, 0, len(courses))
	for _, c := range courses {
		out = append(out, newCourseResource(c))
	}
	writeSuccess(w, http.StatusOK, "Courses retrieved successfully", out)
}

func (h *Handlers) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeFailure(w, http.StatusNotFound, domain.MsgCourseNotFound, nil)
		return
	}
	c, err := h.courses.GetCourse(r.Context(), id)
	if err != nil {
		h.courseError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Course retrieved successfully", newCourseResource(*c))
}

func (h *Handlers) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	c := domain.Course{
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		Level:          req.Level,
		Category:       req.Category,
		Duration:       req.Duration,
		TotalSeats:     *req.TotalSeats,
		AvailableSeats: *req.AvailableSeats,
	}
	if req.Rating != nil {
		c.Rating = *req.Rating
	}
	c, err := domain.NewCourse(c, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.courses.CreateCourse(r.Context(), c); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Course created successfully", newCourseResource(c))
}

func (h *Handlers) courseError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, domain.MsgCourseNotFound, nil)
		return
	}
	writeError(w, r, h.logger, err)
}
