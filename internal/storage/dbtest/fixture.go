// Package dbtest builds migrated SQLite stores loaded with a small hotel-chain
// dataset for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	db "github.com/lueurxax/hotel-dashboard/internal/storage"
)

type Hotel struct {
	ID   int64
	Name string
}

type Room struct {
	ID         int64
	WingID     int64
	RoomTypeID int64
}

type Party struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Score     int64
}

type Reservation struct {
	ID      int64
	PartyID int64
}

type Stay struct {
	ID            int64
	ReservationID int64
	RoomID        int64
	CheckIn       string
	CheckOut      string
}

type Charge struct {
	ID            int64
	ReservationID int64
	ChargeTypeID  int64
	Cost          float64
	DateTime      string
}

type Staff struct {
	ID         int64
	FirstName  string
	LastName   string
	Occupation string
}

type Task struct {
	ID      int64
	StaffID int64
}

type StaffEvent struct {
	EventID int64
	StaffID int64
}

// Dataset is a complete fixture. Buildings and wings map one to one onto hotels
// (building N and wing N belong to hotel N).
type Dataset struct {
	Hotels       []Hotel
	RoomTypes    map[int64]string
	Rooms        []Room
	Parties      []Party
	Reservations []Reservation
	Stays        []Stay
	ChargeTypes  map[int64]string
	Charges      []Charge
	Staff        []Staff
	Tasks        []Task
	StaffEvents  []StaffEvent
}

// Fixture returns the default dataset.
//
// Reservation 1 has two stays in Grand Plaza and reservation 2 starts in Seaside
// Inn and moves to Grand Plaza. Reservations 5 and 6 have no charges; their
// date-only stays fall on the first day of the default occupancy window (Empty
// Lodge) and on its exclusive end (Seaside Inn). Party "Dave Lonely" has no
// reservations and staff "Gina Idle" has no tasks or events.
func Fixture() Dataset {
	return Dataset{
		Hotels: []Hotel{
			{ID: 1, Name: "Grand Plaza"},
			{ID: 2, Name: "Seaside Inn"},
			{ID: 3, Name: "Empty Lodge"},
		},
		RoomTypes: map[int64]string{1: "Single", 2: "Double", 3: "Suite"},
		Rooms: []Room{
			{ID: 101, WingID: 1, RoomTypeID: 1},
			{ID: 102, WingID: 1, RoomTypeID: 2},
			{ID: 201, WingID: 2, RoomTypeID: 3},
			{ID: 202, WingID: 2, RoomTypeID: 2},
			{ID: 301, WingID: 3, RoomTypeID: 1},
		},
		Parties: []Party{
			{ID: 1, FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Score: 5},
			{ID: 2, FirstName: "Bob", LastName: "Jones", Email: "bob@example.com", Score: 3},
			{ID: 3, FirstName: "Carol", LastName: "Smithers", Email: "carol@example.com", Score: 5},
			{ID: 4, FirstName: "Dave", LastName: "Lonely", Email: "dave@example.com", Score: 1},
		},
		Reservations: []Reservation{
			{ID: 1, PartyID: 1},
			{ID: 2, PartyID: 2},
			{ID: 3, PartyID: 3},
			{ID: 4, PartyID: 1},
			{ID: 5, PartyID: 3},
			{ID: 6, PartyID: 2},
		},
		Stays: []Stay{
			{ID: 1, ReservationID: 1, RoomID: 101, CheckIn: "2025-01-10 14:00:00", CheckOut: "2025-01-12 11:00:00"},
			{ID: 2, ReservationID: 2, RoomID: 201, CheckIn: "2025-02-01 15:00:00", CheckOut: "2025-02-03 10:00:00"},
			{ID: 3, ReservationID: 3, RoomID: 102, CheckIn: "2025-05-05 16:00:00", CheckOut: "2025-05-06 09:00:00"},
			{ID: 4, ReservationID: 4, RoomID: 101, CheckIn: "2025-03-15 13:00:00", CheckOut: "2025-03-16 12:00:00"},
			{ID: 5, ReservationID: 1, RoomID: 102, CheckIn: "2025-01-12 15:00:00", CheckOut: "2025-01-14 10:00:00"},
			{ID: 6, ReservationID: 2, RoomID: 102, CheckIn: "2025-02-03 12:00:00", CheckOut: "2025-02-04 10:00:00"},
			{ID: 7, ReservationID: 5, RoomID: 301, CheckIn: "2025-01-01", CheckOut: "2025-01-02"},
			{ID: 8, ReservationID: 6, RoomID: 202, CheckIn: "2025-04-01", CheckOut: "2025-04-02"},
		},
		ChargeTypes: map[int64]string{1: "Room Night", 2: "Minibar", 3: "Spa"},
		Charges: []Charge{
			{ID: 1, ReservationID: 1, ChargeTypeID: 1, Cost: 100, DateTime: "2025-01-10 20:00:00"},
			{ID: 2, ReservationID: 1, ChargeTypeID: 1, Cost: 100, DateTime: "2025-01-11 20:00:00"},
			{ID: 3, ReservationID: 1, ChargeTypeID: 2, Cost: 15.5, DateTime: "2025-01-11 22:30:00"},
			{ID: 4, ReservationID: 2, ChargeTypeID: 1, Cost: 250, DateTime: "2025-02-01 20:00:00"},
			{ID: 5, ReservationID: 2, ChargeTypeID: 3, Cost: 80, DateTime: "2025-02-02 10:00:00"},
			{ID: 6, ReservationID: 3, ChargeTypeID: 1, Cost: 120, DateTime: "2025-05-05 20:00:00"},
			{ID: 7, ReservationID: 4, ChargeTypeID: 1, Cost: 100, DateTime: "2025-03-15 20:00:00"},
			{ID: 8, ReservationID: 4, ChargeTypeID: 2, Cost: 4.5, DateTime: "2025-03-15 23:00:00"},
		},
		Staff: []Staff{
			{ID: 1, FirstName: "Eve", LastName: "Porter", Occupation: "Concierge"},
			{ID: 2, FirstName: "Frank", LastName: "Hale", Occupation: "Housekeeping"},
			{ID: 3, FirstName: "Gina", LastName: "Idle", Occupation: "Maintenance"},
		},
		Tasks: []Task{
			{ID: 1, StaffID: 1},
			{ID: 2, StaffID: 1},
			{ID: 3, StaffID: 2},
			{ID: 4, StaffID: 2},
			{ID: 5, StaffID: 2},
		},
		StaffEvents: []StaffEvent{
			{EventID: 10, StaffID: 1},
			{EventID: 11, StaffID: 1},
			{EventID: 12, StaffID: 2},
		},
	}
}

// Room returns the room with the given id. Its WingID is also its hotel id.
func (d Dataset) Room(id int64) Room {
	for _, r := range d.Rooms {
		if r.ID == id {
			return r
		}
	}

	return Room{}
}

// FirstStays maps each reservation with stays onto its stay with the lowest id.
func (d Dataset) FirstStays() map[int64]Stay {
	first := make(map[int64]Stay, len(d.Reservations))

	for _, s := range d.Stays {
		if cur, ok := first[s.ReservationID]; !ok || s.ID < cur.ID {
			first[s.ReservationID] = s
		}
	}

	return first
}

// NewSQLite returns a migrated file-backed store loaded with data. The store is
// closed when the test ends.
func NewSQLite(t testing.TB, data Dataset) *db.DB {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hotel.db")
	logger := zerolog.Nop()

	store, err := db.OpenSQLite(ctx, path, &logger)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}

	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate sqlite store: %v", err)
	}

	seed(t, path, data)

	return store
}

func seed(t testing.TB, path string, data Dataset) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open seed connection: %v", err)
	}
	defer sqlDB.Close()

	exec := func(query string, args ...any) {
		t.Helper()

		if _, err := sqlDB.Exec(query, args...); err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
	}

	for _, h := range data.Hotels {
		exec(`INSERT INTO hotel (hotelId, name) VALUES (?, ?)`, h.ID, h.Name)
		exec(`INSERT INTO building (buildingId, hotelId, name) VALUES (?, ?, ?)`, h.ID, h.ID, "Main")
		exec(`INSERT INTO wing (wingId, buildingId, name) VALUES (?, ?, ?)`, h.ID, h.ID, "East")
	}

	for id, name := range data.RoomTypes {
		exec(`INSERT INTO room_type (roomTypeId, name) VALUES (?, ?)`, id, name)
	}

	for _, r := range data.Rooms {
		exec(`INSERT INTO room (roomId, wingId, roomTypeId, number) VALUES (?, ?, ?, ?)`, r.ID, r.WingID, r.RoomTypeID, r.ID)
	}

	for _, p := range data.Parties {
		exec(`INSERT INTO party (partyId, firstName, lastName, email) VALUES (?, ?, ?, ?)`, p.ID, p.FirstName, p.LastName, p.Email)
		exec(`INSERT INTO customer_qualification (partyId, score) VALUES (?, ?)`, p.ID, p.Score)
	}

	for _, r := range data.Reservations {
		exec(`INSERT INTO reservation (reservationId, partyId) VALUES (?, ?)`, r.ID, r.PartyID)
	}

	for _, s := range data.Stays {
		exec(`INSERT INTO stay (stayId, reservationId, roomId, checkInTime, checkOutTime) VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.ReservationID, s.RoomID, s.CheckIn, s.CheckOut)
	}

	for id, name := range data.ChargeTypes {
		exec(`INSERT INTO charge_type (chargeTypeId, name) VALUES (?, ?)`, id, name)
	}

	for _, c := range data.Charges {
		exec(`INSERT INTO charge (chargeId, reservationId, chargeTypeId, cost, dateTime) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.ReservationID, c.ChargeTypeID, c.Cost, c.DateTime)
	}

	for _, s := range data.Staff {
		exec(`INSERT INTO staff (staffId, firstName, lastName, occupation) VALUES (?, ?, ?, ?)`,
			s.ID, s.FirstName, s.LastName, s.Occupation)
	}

	for _, task := range data.Tasks {
		exec(`INSERT INTO task (taskId, staffId, description) VALUES (?, ?, ?)`, task.ID, task.StaffID, "turn-down")
	}

	for _, e := range data.StaffEvents {
		exec(`INSERT INTO staff_event (eventId, staffId) VALUES (?, ?)`, e.EventID, e.StaffID)
	}
}
