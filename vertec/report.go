package vertec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Reporter drives the full flow: authenticate once, fetch the managed
// users, and print a day-by-day timesheet per user with missing weekdays
// highlighted. Users are processed strictly in server order and each report
// is printed as soon as it is complete.
type Reporter struct {
	Client *Client
	Out    io.Writer

	// Months is the trailing booking window in whole calendar months.
	Months int

	// IncludeInactive also reports users whose active flag is off.
	IncludeInactive bool
}

// Run executes the report. Any transport error or service fault aborts the
// whole run; there is no per-user continuation.
func (r *Reporter) Run(ctx context.Context, username, password string) error {
	token, err := r.Client.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	result, err := r.Client.Query(ctx, token, ManagedUsersQuery())
	if err != nil {
		return fmt.Errorf("fetching managed users: %w", err)
	}
	if result.Faulted() {
		return result.Fault
	}

	for _, record := range result.Records {
		user := UserFromRecord(record)
		if !user.Active && !r.IncludeInactive {
			continue
		}
		if err := r.reportUser(ctx, token, user); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reporter) reportUser(ctx context.Context, token string, user User) error {
	slog.Debug("fetching bookings", "user", user.Name, "objid", user.ObjID, "months", r.Months)

	result, err := r.Client.Query(ctx, token, BookingsQuery(user.ObjID, r.Months))
	if err != nil {
		return fmt.Errorf("fetching bookings for %s: %w", user.Name, err)
	}
	if result.Faulted() {
		return result.Fault
	}

	bookings := make([]Booking, 0, len(result.Records))
	for _, record := range result.Records {
		booking, err := BookingFromRecord(record)
		if err != nil {
			return err
		}
		bookings = append(bookings, booking)
	}

	fmt.Fprintf(r.Out, "\n\x1b[92m### %s (%s)\x1b[0m\n", user.Name, user.ObjID)
	return RenderBookings(r.Out, bookings)
}

// RenderBookings prints one line per booking in chronological order,
// interleaved with MISSING lines for every weekday without a single
// booking. The scan starts at the first day of the calendar month of the
// earliest booking; bookings sharing a date form one group and advance the
// day cursor exactly once. A blank line is emitted before each Monday group
// as a visual week break.
func RenderBookings(w io.Writer, bookings []Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	sorted := make([]Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	first, err := time.Parse(dateLayout, sorted[0].Date)
	if err != nil {
		return fmt.Errorf("malformed booking date %q: %w", sorted[0].Date, err)
	}
	cursor := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)

	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Date == sorted[start].Date {
			end++
		}

		current, err := time.Parse(dateLayout, sorted[start].Date)
		if err != nil {
			return fmt.Errorf("malformed booking date %q: %w", sorted[start].Date, err)
		}

		for cursor.Before(current) {
			if isWorkday(cursor) {
				fmt.Fprintf(w, "%s - MISSING\n", cursor.Format(dateLayout))
			}
			cursor = cursor.AddDate(0, 0, 1)
		}

		if current.Weekday() == time.Monday {
			fmt.Fprintln(w)
		}

		for _, booking := range sorted[start:end] {
			fmt.Fprintf(w, "%s - %-30s | %-40s :: %.1f\n", booking.Date, booking.Project, booking.Phase, booking.Hours())
		}

		cursor = current.AddDate(0, 0, 1)
		start = end
	}

	return nil
}

func isWorkday(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
