package farrier

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/geo"
)

const MinutesPerDay = 24 * 60

type Farrier struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	BusinessName   string
	TravelRadiusKm float64 // 0 means use the configured default
	IsAvailable    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WeeklyWindow is a recurring availability window. DayOfWeek uses Monday=0,
// minutes are minutes after local midnight and EndMinute may be 1440.
type WeeklyWindow struct {
	ID          uuid.UUID
	FarrierID   uuid.UUID
	DayOfWeek   int
	StartMinute int
	EndMinute   int
}

func (w WeeklyWindow) String() string {
	return fmt.Sprintf("%d %s-%s", w.DayOfWeek, FormatMinute(w.StartMinute), FormatMinute(w.EndMinute))
}

type WorkArea struct {
	ID               uuid.UUID
	FarrierID        uuid.UUID
	City             string
	PostalCodePrefix *string
	Latitude         *float64
	Longitude        *float64
	TravelFee        float64
	CreatedAt        time.Time
}

// GeoArea converts the work area for the adjacency index.
func (a WorkArea) GeoArea() geo.Area {
	area := geo.Area{Name: a.City}
	if a.Latitude != nil && a.Longitude != nil {
		area.Coords = &geo.Coordinates{Lat: *a.Latitude, Lng: *a.Longitude}
	}
	return area
}

type Horse struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
}

// Weekday maps a date to the Monday=0 numbering used by weekly windows.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// FormatMinute renders a minute of day as HH:MM.
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses HH:MM (24:00 allowed) into a minute of day.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err == nil {
		return t.Hour()*60 + t.Minute(), nil
	}
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
}
