package memberrepo

import (
	"context"
	"testing"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

func TestRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	now := time.Unix(100, 0).UTC()

	m := domain.Member{
		ID:        domain.MemberID("m1"),
		Name:      "Martin",
		FirstName: "Alice",
		BadgeID:   "B1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.Create(context.Background(), m); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	gotByID, err := r.GetByID(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if gotByID.ID != m.ID || gotByID.Name != m.Name {
		t.Fatalf("GetByID()=%+v, want %+v", gotByID, m)
	}

	gotByBadge, err := r.GetByBadge(context.Background(), "B1")
	if err != nil {
		t.Fatalf("GetByBadge() err=%v", err)
	}
	if gotByBadge.ID != m.ID {
		t.Fatalf("GetByBadge().ID=%q, want %q", gotByBadge.ID, m.ID)
	}
}

func TestRepo_CreateRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	m1 := domain.Member{ID: "m1", Name: "A"}
	m2 := domain.Member{ID: "m1", Name: "B"}

	if err := r.Create(context.Background(), m1); err != nil {
		t.Fatalf("Create(m1) err=%v", err)
	}
	if err := r.Create(context.Background(), m2); err != memberrepo.ErrAlreadyExists {
		t.Fatalf("Create(m2) err=%v, want %v", err, memberrepo.ErrAlreadyExists)
	}
}

func TestRepo_UpdateMovesBadge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRepo()
	if err := r.Create(ctx, domain.Member{ID: "m1", BadgeID: "B1"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if err := r.Update(ctx, domain.Member{ID: "m1", BadgeID: "B2"}); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	if _, err := r.GetByBadge(ctx, "B1"); err != memberrepo.ErrNotFound {
		t.Fatalf("GetByBadge(old) err=%v, want %v", err, memberrepo.ErrNotFound)
	}
	// The released badge can be reused.
	if err := r.Create(ctx, domain.Member{ID: "m2", BadgeID: "B1"}); err != nil {
		t.Fatalf("Create(reuse badge) err=%v", err)
	}
}

func TestRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRepo()
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := r.Create(ctx, domain.Member{ID: "m1", EndDate: &end, Files: []domain.MemberFile{{Name: "a"}}}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	got, _ := r.GetByID(ctx, "m1")
	*got.EndDate = end.AddDate(1, 0, 0)
	got.Files[0].Name = "mutated"

	again, _ := r.GetByID(ctx, "m1")
	if !again.EndDate.Equal(end) || again.Files[0].Name != "a" {
		t.Fatalf("stored member mutated through returned copy: %+v", again)
	}
}
