package domain

import (
	"testing"
	"time"
)

func TestDeriveEntryStatus(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		dueDate time.Time
		want    EntryStatus
	}{
		{"previous month", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), EntryStatusOverdue},
		{"much earlier", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), EntryStatusOverdue},
		{"same month, earlier day", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), EntryStatusDue},
		{"same month, later day", time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), EntryStatusDue},
		{"next month", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), EntryStatusUpcoming},
		{"same month previous year", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), EntryStatusOverdue},
	}

	for _, tc := range cases {
		if got := DeriveEntryStatus(tc.dueDate, asOf); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestEffectiveStatus_PaidIsFrozen(t *testing.T) {
	paidDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := &RepaymentEntry{
		DueDate:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:   EntryStatusPaid,
		PaidDate: &paidDate,
	}

	// Long past the due date, a paid entry must never reclassify as overdue.
	asOf := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := entry.EffectiveStatus(asOf); got != EntryStatusPaid {
		t.Errorf("Expected paid, got %s", got)
	}
}

func TestEffectiveStatus_UnpaidIsRederived(t *testing.T) {
	entry := &RepaymentEntry{
		DueDate: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		Status:  EntryStatusUpcoming, // generation-time snapshot
	}

	// By December the stored "upcoming" snapshot is stale.
	asOf := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	if got := entry.EffectiveStatus(asOf); got != EntryStatusOverdue {
		t.Errorf("Expected overdue, got %s", got)
	}
}

func TestParseEntryStatus(t *testing.T) {
	for _, s := range []string{"upcoming", "due", "overdue", "paid"} {
		if _, err := ParseEntryStatus(s); err != nil {
			t.Errorf("Expected %q to parse, got %v", s, err)
		}
	}
	if _, err := ParseEntryStatus("partial"); err != ErrStatusUnknown {
		t.Errorf("Expected ErrStatusUnknown, got %v", err)
	}
}
