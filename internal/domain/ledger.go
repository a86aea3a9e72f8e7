package domain

// Seat ledger rules shared by every store implementation. SQL stores express the
// same rules as single conditional statements; see crdb.txStore.

// TakeSeats subtracts n from the course's available seats when enough remain.
// It reports false and leaves the course untouched otherwise.
func TakeSeats(c *Course, n int) bool {
	if n <= 0 || c.AvailableSeats < n {
		return false
	}
	c.AvailableSeats -= n
	return true
}

// ReleaseSeats adds n back to the course, never past its capacity.
func ReleaseSeats(c *Course, n int) {
	if n <= 0 {
		return
	}
	c.AvailableSeats += n
	if c.AvailableSeats > c.TotalSeats {
		c.AvailableSeats = c.TotalSeats
	}
}

// ValidateSeats checks the capacity invariant for a course about to be stored.
func ValidateSeats(total, available int) error {
	if total < 0 {
		return InvalidInput("total_seats must not be negative")
	}
	if available < 0 || available > total {
		return InvalidInput("available_seats must be between 0 and total_seats")
	}
	return nil
}
