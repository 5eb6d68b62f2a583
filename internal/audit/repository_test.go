package audit

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []*Event{
		{UserID: ptr(1), Kind: KindLogin, IPAddress: "10.0.0.1", UserAgent: "ua", Timestamp: base},
		{UserID: nil, Kind: KindFailedLogin, IPAddress: "10.0.0.2", Timestamp: base.Add(time.Minute)},
		{UserID: ptr(2), Kind: KindFailedLogin, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if err := repo.Create(ctx, ev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if ev.ID == 0 {
			t.Fatal("Create() should set ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Events) != 3 {
		t.Fatalf("List() total=%d len=%d, want 3/3", all.Total, len(all.Events))
	}
	if all.Limit != 50 {
		t.Errorf("default Limit = %d, want 50", all.Limit)
	}
	if all.Events[0].Kind != KindFailedLogin || all.Events[2].Kind != KindLogin {
		t.Errorf("events not newest first: %v, %v", all.Events[0].Kind, all.Events[2].Kind)
	}
	if all.Events[1].UserID != nil {
		t.Errorf("unknown-email failure UserID = %v, want nil", *all.Events[1].UserID)
	}
	if all.Events[2].IPAddress != "10.0.0.1" || all.Events[2].UserAgent != "ua" {
		t.Errorf("client info not round-tripped: %+v", all.Events[2])
	}

	failed, err := repo.List(ctx, Filter{Kind: KindFailedLogin})
	if err != nil {
		t.Fatalf("List(kind) error = %v", err)
	}
	if failed.Total != 2 {
		t.Errorf("failed_login total = %d, want 2", failed.Total)
	}

	user2, err := repo.List(ctx, Filter{UserID: ptr(2), Kind: KindFailedLogin})
	if err != nil {
		t.Fatalf("List(user) error = %v", err)
	}
	if user2.Total != 1 {
		t.Errorf("user 2 total = %d, want 1", user2.Total)
	}
}

func TestSQLiteRepository_ListClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	for _, tt := range []struct{ in, want int }{{0, 50}, {-3, 50}, {10, 10}, {1000, 200}} {
		res, err := repo.List(ctx, Filter{Limit: tt.in, Offset: -1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if res.Limit != tt.want || res.Offset != 0 {
			t.Errorf("Limit %d -> %d offset %d, want %d offset 0", tt.in, res.Limit, res.Offset, tt.want)
		}
	}
}

func TestSQLiteRepository_CloseLatestLogin(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := &Event{UserID: ptr(1), Kind: KindLogin, Timestamp: base}
	newer := &Event{UserID: ptr(1), Kind: KindLogin, Timestamp: base.Add(time.Hour)}
	failed := &Event{UserID: ptr(1), Kind: KindFailedLogin, Timestamp: base.Add(2 * time.Hour)}
	for _, ev := range []*Event{older, newer, failed} {
		if err := repo.Create(ctx, ev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	closed, err := repo.CloseLatestLogin(ctx, 1, base.Add(3*time.Hour))
	if err != nil || !closed {
		t.Fatalf("CloseLatestLogin() = %v, %v; want true, nil", closed, err)
	}

	res, _ := repo.List(ctx, Filter{UserID: ptr(1), Kind: KindLogin})
	byID := map[int64]Event{}
	for _, ev := range res.Events {
		byID[ev.ID] = ev
	}
	if byID[newer.ID].LogoutTimestamp == nil {
		t.Error("most recent login should be closed")
	}
	if byID[older.ID].LogoutTimestamp != nil {
		t.Error("older login should stay open")
	}

	// Second logout closes the older one, a third finds nothing.
	if closed, _ := repo.CloseLatestLogin(ctx, 1, base.Add(4*time.Hour)); !closed {
		t.Error("second CloseLatestLogin() should close the older login")
	}
	if closed, err := repo.CloseLatestLogin(ctx, 1, base.Add(5*time.Hour)); err != nil || closed {
		t.Errorf("third CloseLatestLogin() = %v, %v; want false, nil", closed, err)
	}
	if closed, _ := repo.CloseLatestLogin(ctx, 99, base); closed {
		t.Error("unknown user should have nothing to close")
	}
}
