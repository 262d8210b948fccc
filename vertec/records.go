package vertec

import (
	"fmt"
	"math"
	"strconv"
)

// User is the typed view of a managed-user record.
type User struct {
	ObjID      string
	Name       string
	TeamLeader string
	Level      string
	EntryDate  string
	ExitDate   string
	Active     bool
}

func UserFromRecord(record Record) User {
	return User{
		ObjID:      record.Get("objid"),
		Name:       record.Get("name"),
		TeamLeader: record.Get("teamleiter_name"),
		Level:      record.Get("stufe_name"),
		EntryDate:  record.Get("eintrittper"),
		ExitDate:   record.Get("austrittper"),
		Active:     record.Get("aktiv") == "1",
	}
}

// Booking is one time-tracking entry (Leistung). Date is the normalized
// YYYY-MM-DD string; keeping it as a string makes the lexical sort in the
// reporter line up with chronological order.
type Booking struct {
	Date      string
	Minutes   int
	Project   string
	Phase     string
	Note      string
	Performer string
	ValueInt  string
	ValueExt  string
	Billable  bool
}

func BookingFromRecord(record Record) (Booking, error) {
	minutesField := record.Get("minutenInt")
	minutes, err := strconv.Atoi(minutesField)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s has malformed minutenInt %q: %w", record.Get("objid"), minutesField, err)
	}
	return Booking{
		Date:      record.Get("datum"),
		Minutes:   minutes,
		Project:   record.Get("projekt_name"),
		Phase:     record.Get("phase_name"),
		Note:      record.Get("text"),
		Performer: record.Get("bearbeiter_name"),
		ValueInt:  record.Get("wertInt"),
		ValueExt:  record.Get("wertExt"),
		Billable:  record.Get("phase_is_billable") == "1",
	}, nil
}

// Hours converts the duration to hours rounded to one decimal place, so 90
// minutes renders as 1.5 and 45 as 0.8.
func (b Booking) Hours() float64 {
	return math.Round(float64(b.Minutes)/60*10) / 10
}
