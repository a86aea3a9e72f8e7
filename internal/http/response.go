package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

const dateTimeLayout = "2006-01-02 15:04:05"

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Errors  interface{} `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) []byte {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"success":false,"message":"failed to encode response","data":null}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) []byte {
	return writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string, errs interface{}) {
	writeJSON(w, status, envelope{Success: false, Message: message, Errors: errs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		// Conflicts and failed operations are both reported as a bad request.
		return http.StatusBadRequest
	}
}

// writeError maps a failure from the booking or course layer to its status and message.
func writeError(w http.ResponseWriter, r *http.Request, logger observability.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		observability.LoggerFromContext(r.Context(), logger).WithError(err).Error("request failed")
		writeFailure(w, http.StatusBadRequest, "Request failed", nil)
		return
	}
	writeFailure(w, statusFor(err), de.Error(), nil)
}

type userResource struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
}

type bookingCourseResource struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	Level          string    `json:"level,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	Rating         *float64  `json:"rating,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	AvailableSeats *int      `json:"available_seats,omitempty"`
	TotalSeats     *int      `json:"total_seats,omitempty"`
}

type bookingResource struct {
	ID          uuid.UUID             `json:"id"`
	User        userResource          `json:"user"`
	Course      bookingCourseResource `json:"course"`
	BookingDate string                `json:"booking_date"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

func newBookingResource(d domain.BookingDetail) bookingResource {
	res := bookingResource{
		ID:          d.ID,
		User:        userResource{ID: d.UserID},
		Course:      bookingCourseResource{ID: d.CourseID},
		BookingDate: formatTime(d.CreatedAt),
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
	if d.User != nil {
		res.User.Name = d.User.Name
		res.User.Email = d.User.Email
	}
	if c := d.Course; c != nil {
		rating, available, total := c.Rating, c.AvailableSeats, c.TotalSeats
		res.Course.Title = c.Title
		res.Course.Description = c.Description
		res.Course.Level = c.Level
		res.Course.Duration = c.Duration
		res.Course.Rating = &rating
		res.Course.ImageURL = c.ImageURL
		res.Course.AvailableSeats = &available
		res.Course.TotalSeats = &total
	}
	return res
}

func newBookingResources(details []domain.BookingDetail) []bookingResource {
	out := make([]bookingResource, 0, len(details))
	for _, d := range details {
		out = append(out, newBookingResource(d))
	}
	return out
}

type courseResource struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	Level          string    `json:"level"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Rating         float64   `json:"rating"`
	Duration       string    `json:"duration"`
	Category       string    `json:"category"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

func newCourseResource(c domain.Course) courseResource {
	return courseResource{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		ImageURL:       c.ImageURL,
		Level:          c.Level,
		TotalSeats:     c.TotalSeats,
		AvailableSeats: c.AvailableSeats,
		Rating:         c.Rating,
		Duration:       c.Duration,
		Category:       c.Category,
		CreatedAt:      formatTime(c.CreatedAt),
		UpdatedAt:      formatTime(c.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeLayout)
}
