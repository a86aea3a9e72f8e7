// Package memory is an in-process implementation of the storage ports. Every
// transaction holds one lock and works on a copy of the state that replaces
// the live state only when fn returns nil.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/domain"
)

type state struct {
	courses  map[uuid.UUID]domain.Course
	bookings map[uuid.UUID]domain.Booking
	events   []domain.OutboxEvent
}

func (s state) clone() state {
	c := state{
		courses:  make(map[uuid.UUID]domain.Course, len(s.courses)),
		bookings: make(map[uuid.UUID]domain.Booking, len(s.bookings)),
		events:   append([]domain.OutboxEvent(nil), s.events...),
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

type Store struct {
	mu         sync.Mutex
	state      state
	users      map[uuid.UUID]domain.User
	commitErrs []error
}

func NewStore() *Store {
	return &Store{
		state: state{
			courses:  make(map[uuid.UUID]domain.Course),
			bookings: make(map[uuid.UUID]domain.Booking),
		},
		users: make(map[uuid.UUID]domain.User),
	}
}

// FailNextCommit makes the next transaction that reaches commit discard its
// writes and return err instead.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErrs = append(s.commitErrs, err)
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&tx{st: &work}); err != nil {
		return err
	}
	if len(s.commitErrs) > 0 {
		err := s.commitErrs[0]
		s.commitErrs = s.commitErrs[1:]
		return err
	}
	s.state = work
	return nil
}

func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u
	return u
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetCourse(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Course, 0, len(s.state.courses))
	for _, c := range s.state.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateCourse(_ context.Context, c domain.Course) error {
	if err := domain.ValidateSeats(c.TotalSeats, c.AvailableSeats); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.courses[c.ID] = c
	return nil
}

// Course returns the committed state of a course, for assertions.
func (s *Store) Course(id uuid.UUID) (domain.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.courses[id]
	return c, ok
}

// SetAvailableSeats overwrites a course's seat count outside the ledger.
// Only tests that simulate a corrupted ledger should need it.
func (s *Store) SetAvailableSeats(id uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.state.courses[id]; ok {
		c.AvailableSeats = n
		s.state.courses[id] = c
	}
}

func (s *Store) Bookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.state.bookings))
	for _, b := range s.state.bookings {
		out = append(out, b)
	}
	sortBookings(out)
	return out
}

func (s *Store) Events() []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxEvent(nil), s.state.events...)
}

func (s *Store) GetBookingDetail(_ context.Context, id uuid.UUID) (*domain.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	d := s.detail(b)
	return &d, nil
}

func (s *Store) ListBookings(_ context.Context, filter domain.BookingFilter) ([]domain.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.Booking
	for _, b := range s.state.bookings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.CourseID != nil && b.CourseID != *filter.CourseID {
			continue
		}
		matched = append(matched, b)
	}
	sortBookings(matched)
	out := make([]domain.BookingDetail, 0, len(matched))
	for _, b := range matched {
		out = append(out, s.detail(b))
	}
	return out, nil
}

func (s *Store) HasUserBookedCourse(_ context.Context, courseID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.state.bookings {
		if b.CourseID == courseID && b.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SeatUsage(_ context.Context) ([]domain.SeatUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booked := make(map[uuid.UUID]int)
	for _, b := range s.state.bookings {
		booked[b.CourseID]++
	}
	out := make([]domain.SeatUsage, 0, len(s.state.courses))
	for _, c := range s.state.courses {
		out = append(out, domain.SeatUsage{
			CourseID:       c.ID,
			Title:          c.Title,
			TotalSeats:     c.TotalSeats,
			AvailableSeats: c.AvailableSeats,
			Booked:         booked[c.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID.String() < out[j].CourseID.String() })
	return out, nil
}

func (s *Store) detail(b domain.Booking) domain.BookingDetail {
	d := domain.BookingDetail{Booking: b}
	if u, ok := s.users[b.UserID]; ok {
		d.User = &u
	}
	if c, ok := s.state.courses[b.CourseID]; ok {
		d.Course = &c
	}
	return d
}

func sortBookings(bs []domain.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].ID.String() < bs[j].ID.String()
		}
		return bs[i].CreatedAt.Before(bs[j].CreatedAt)
	})
}

type tx struct {
	st *state
}

func (t *tx) GetCourse(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	c, ok := t.st.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (t *tx) ReduceSeats(_ context.Context, courseID uuid.UUID, n int) (bool, error) {
	c, ok := t.st.courses[courseID]
	if !ok {
		return false, nil
	}
	if !domain.TakeSeats(&c, n) {
		return false, nil
	}
	t.st.courses[courseID] = c
	return true, nil
}

func (t *tx) IncreaseSeats(_ context.Context, courseID uuid.UUID, n int) error {
	c, ok := t.st.courses[courseID]
	if !ok {
		return domain.ErrNotFound
	}
	domain.ReleaseSeats(&c, n)
	t.st.courses[courseID] = c
	return nil
}

func (t *tx) GetBooking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (t *tx) FindUserBooking(_ context.Context, userID, courseID uuid.UUID) (*domain.Booking, error) {
	for _, b := range t.st.bookings {
		if b.UserID == userID && b.CourseID == courseID {
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *tx) InsertBooking(_ context.Context, b domain.Booking) error {
	t.st.bookings[b.ID] = b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.bookings, id)
	return nil
}

func (t *tx) InsertEvent(_ context.Context, ev domain.OutboxEvent) error {
	t.st.events = append(t.st.events, ev)
	return nil
}
