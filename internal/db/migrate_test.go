package db

import (
	"strings"
	"testing"
)

func TestSchemaDeclaresLedgerTables(t *testing.T) {
	s := Schema()
	for _, table := range []string{"farriers", "weekly_windows", "work_areas", "horses", "bookings", "event_logs"} {
		if !strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestSchemaExcludesOverlappingActiveBookings(t *testing.T) {
	s := Schema()
	if !strings.Contains(s, "CONSTRAINT bookings_no_overlap EXCLUDE USING gist") {
		t.Fatal("bookings_no_overlap constraint missing")
	}
	if !strings.Contains(s, "WHERE (status IN ('pending', 'confirmed', 'in_progress'))") {
		t.Error("overlap constraint must only cover active statuses")
	}
}
