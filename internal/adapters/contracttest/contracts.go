package contracttest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/domain"
	blobstoreport "github.com/bodyforce/admin-api/internal/ports/out/blobstore"
	idempotencyport "github.com/bodyforce/admin-api/internal/ports/out/idempotency"
	memberrepoport "github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
	presencerepoport "github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
	urlcacheport "github.com/bodyforce/admin-api/internal/ports/out/urlcache"
	userrepoport "github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type PresenceRepoFactory func(t *testing.T) (presencerepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type BlobStoreFactory func(t *testing.T) (blobstoreport.Store, CleanupFunc)
type URLCacheFactory func(t *testing.T) (urlcacheport.Cache, CleanupFunc)

// PaymentRepoFactory and UserRepoFactory also return the ID of an existing member
// that rows may reference.
type PaymentRepoFactory func(t *testing.T) (paymentrepoport.Repository, CleanupFunc, domain.MemberID)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc, domain.MemberID)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("admin-1"),
		Method:   "PATCH",
		Route:    "/members/{memberId}",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "xyz"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other body hash) ok=%v err=%v, want miss", ok, err)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique per run so suites can share a database.
	tag := uuid.NewString()[:8]
	now := time.Unix(1_700_000_000, 0).UTC()
	past := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	future := time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	aID := domain.MemberID(uuid.NewString())
	a := domain.Member{
		ID:               aID,
		Name:             "Martin" + tag,
		FirstName:        "alice",
		Email:            "alice." + tag + "@example.com",
		Gender:           domain.GenderFemale,
		SubscriptionType: domain.SubscriptionMonthly,
		StartDate:        &start,
		EndDate:          &future,
		BadgeID:          domain.BadgeID("A-" + tag),
		Files:            []domain.MemberFile{{Name: "certificat.pdf", URL: "http://x/a", Path: "members/a/certificat.pdf"}},
		Etudiant:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != a.Name || got.EndDate == nil || !got.EndDate.Equal(future) || len(got.Files) != 1 || !got.Etudiant {
		t.Fatalf("GetByID()=%+v, want %+v", got, a)
	}
	if _, err := repo.GetByBadge(ctx, a.BadgeID); err != nil {
		t.Fatalf("GetByBadge: %v", err)
	}

	// Duplicate ID.
	if err := repo.Create(ctx, a); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want %v", err, memberrepoport.ErrAlreadyExists)
	}

	// Badge uniqueness.
	dup := domain.Member{ID: domain.MemberID(uuid.NewString()), Name: "Dup" + tag, BadgeID: a.BadgeID, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, dup); !errors.Is(err, memberrepoport.ErrBadgeTaken) {
		t.Fatalf("Create with taken badge err=%v, want %v", err, memberrepoport.ErrBadgeTaken)
	}

	// Members without a badge do not collide with each other.
	bID := domain.MemberID(uuid.NewString())
	cID := domain.MemberID(uuid.NewString())
	for _, m := range []domain.Member{
		{ID: bID, Name: "martin" + tag, FirstName: "Bob", EndDate: &past, CreatedAt: now, UpdatedAt: now},
		{ID: cID, Name: "Zola" + tag, FirstName: "Chloé", CreatedAt: now, UpdatedAt: now},
	} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create %s: %v", m.FirstName, err)
		}
	}

	// Canonical ordering: lower(name), lower(firstName), id.
	page, err := repo.List(ctx, memberrepoport.Filter{Query: tag, Now: now})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || len(page.Members) != 3 {
		t.Fatalf("List total=%d len=%d, want 3", page.Total, len(page.Members))
	}
	if page.Members[0].ID != aID || page.Members[1].ID != bID || page.Members[2].ID != cID {
		t.Fatalf("List order=[%s %s %s], want [%s %s %s]",
			page.Members[0].FirstName, page.Members[1].FirstName, page.Members[2].FirstName, "alice", "Bob", "Chloé")
	}

	// Paging keeps the total.
	page, err = repo.List(ctx, memberrepoport.Filter{Query: tag, Now: now, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if page.Total != 3 || len(page.Members) != 1 || page.Members[0].ID != bID {
		t.Fatalf("List paged total=%d members=%v", page.Total, page.Members)
	}

	// Status and flags.
	active, err := repo.List(ctx, memberrepoport.Filter{Query: tag, Status: memberrepoport.StatusActive, Now: now})
	if err != nil || active.Total != 1 || active.Members[0].ID != aID {
		t.Fatalf("List active total=%d err=%v, want only a", active.Total, err)
	}
	expired, err := repo.List(ctx, memberrepoport.Filter{Query: tag, Status: memberrepoport.StatusExpired, Now: now})
	if err != nil || expired.Total != 2 {
		t.Fatalf("List expired total=%d err=%v, want 2", expired.Total, err)
	}
	yes := true
	students, err := repo.List(ctx, memberrepoport.Filter{Query: tag, Etudiant: &yes, Now: now})
	if err != nil || students.Total != 1 {
		t.Fatalf("List etudiant total=%d err=%v, want 1", students.Total, err)
	}
	monthly, err := repo.List(ctx, memberrepoport.Filter{Query: tag, SubscriptionType: domain.SubscriptionMonthly, Now: now})
	if err != nil || monthly.Total != 1 {
		t.Fatalf("List Mensuel total=%d err=%v, want 1", monthly.Total, err)
	}

	// Multi-token search matches across fields.
	both, err := repo.List(ctx, memberrepoport.Filter{Query: "ALICE " + tag, Now: now})
	if err != nil || both.Total != 1 {
		t.Fatalf("List multi-token total=%d err=%v, want 1", both.Total, err)
	}

	// Update + invitation lookup.
	sent := now
	exp := now.Add(7 * 24 * time.Hour)
	got.Invitation = domain.Invitation{Token: "tok-" + tag, Status: domain.InvitationPending, SentAt: &sent, ExpiresAt: &exp}
	got.BadgeID = domain.BadgeID("A2-" + tag)
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	byTok, err := repo.GetByInvitationToken(ctx, "tok-"+tag)
	if err != nil {
		t.Fatalf("GetByInvitationToken: %v", err)
	}
	if byTok.ID != aID || byTok.Invitation.Status != domain.InvitationPending || byTok.Invitation.ExpiresAt == nil {
		t.Fatalf("GetByInvitationToken()=%+v", byTok.Invitation)
	}
	if _, err := repo.GetByBadge(ctx, a.BadgeID); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByBadge(old badge) err=%v, want %v", err, memberrepoport.ErrNotFound)
	}

	// Update to a badge held by someone else.
	b, _ := repo.GetByID(ctx, bID)
	b.BadgeID = got.BadgeID
	if err := repo.Update(ctx, b); !errors.Is(err, memberrepoport.ErrBadgeTaken) {
		t.Fatalf("Update with taken badge err=%v, want %v", err, memberrepoport.ErrBadgeTaken)
	}

	// Missing rows.
	if err := repo.Update(ctx, domain.Member{ID: domain.MemberID(uuid.NewString())}); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want %v", err, memberrepoport.ErrNotFound)
	}
	if err := repo.Delete(ctx, cID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, cID); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted err=%v, want %v", err, memberrepoport.ErrNotFound)
	}
	if err := repo.Delete(ctx, cID); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, memberrepoport.ErrNotFound)
	}
}

func RunPresenceRepo(t *testing.T, newRepo PresenceRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	badge := domain.BadgeID("P-" + uuid.NewString()[:8])
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	stamps := []time.Time{
		base,
		base.Add(20 * time.Second), // same minute as base
		base.Add(50 * time.Second), // same minute as base
		base.Add(time.Minute),
		base.Add(24 * time.Hour),
	}
	ids := make([]domain.PresenceID, 0, len(stamps))
	for _, ts := range stamps {
		id := domain.PresenceID(uuid.NewString())
		ids = append(ids, id)
		if err := repo.Create(ctx, domain.Presence{ID: id, BadgeID: badge, Timestamp: ts}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	f := presencerepoport.Filter{BadgeID: badge}
	all, err := repo.ListPage(ctx, f, 0, 100)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(all) != len(stamps) {
		t.Fatalf("ListPage len=%d, want %d", len(all), len(stamps))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Fatalf("ListPage not ordered by timestamp: %v", all)
		}
	}

	// Pages do not overlap.
	p1, _ := repo.ListPage(ctx, f, 0, 2)
	p2, _ := repo.ListPage(ctx, f, 2, 2)
	p3, _ := repo.ListPage(ctx, f, 4, 2)
	if len(p1) != 2 || len(p2) != 2 || len(p3) != 1 {
		t.Fatalf("page sizes=%d,%d,%d, want 2,2,1", len(p1), len(p2), len(p3))
	}
	if p1[1].ID == p2[0].ID {
		t.Fatalf("pages overlap at %s", p1[1].ID)
	}

	// Range is half-open.
	ranged, err := repo.ListPage(ctx, presencerepoport.Filter{
		BadgeID: badge,
		Range:   domain.TimeRange{From: base.Add(time.Minute), To: base.Add(24 * time.Hour)},
	}, 0, 100)
	if err != nil || len(ranged) != 1 {
		t.Fatalf("ListPage ranged len=%d err=%v, want 1", len(ranged), err)
	}

	removed, err := repo.DeleteDuplicates(ctx)
	if err != nil {
		t.Fatalf("DeleteDuplicates: %v", err)
	}
	if removed < 2 {
		t.Fatalf("DeleteDuplicates removed=%d, want >= 2", removed)
	}
	left, _ := repo.ListPage(ctx, f, 0, 100)
	if len(left) != 3 {
		t.Fatalf("after DeleteDuplicates len=%d, want 3", len(left))
	}
	if left[0].ID != ids[0] {
		t.Fatalf("DeleteDuplicates kept %s, want earliest %s", left[0].ID, ids[0])
	}

	if err := repo.Delete(ctx, ids[4]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, ids[4]); !errors.Is(err, presencerepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, presencerepoport.ErrNotFound)
	}
}

func RunPaymentRepo(t *testing.T, newRepo PaymentRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup, memberID := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	due1 := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	due2 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	p1 := domain.Payment{ID: domain.PaymentID(uuid.NewString()), MemberID: memberID, Amount: 35, IsPaid: true, EncaissementPrevu: &due1, Method: domain.PaymentCard, CreatedAt: now, UpdatedAt: now}
	p2 := domain.Payment{ID: domain.PaymentID(uuid.NewString()), MemberID: memberID, Amount: 90.5, EncaissementPrevu: &due2, Method: domain.PaymentCheque, Comment: "chèque n°12", CreatedAt: now, UpdatedAt: now}
	for _, p := range []domain.Payment{p1, p2} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, p1); !errors.Is(err, paymentrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want %v", err, paymentrepoport.ErrAlreadyExists)
	}

	got, err := repo.GetByID(ctx, p2.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Amount != 90.5 || got.Comment != p2.Comment || got.Method != domain.PaymentCheque || got.EncaissementPrevu == nil || !got.EncaissementPrevu.Equal(due2) {
		t.Fatalf("GetByID()=%+v, want %+v", got, p2)
	}

	list, err := repo.List(ctx, paymentrepoport.Filter{MemberID: memberID})
	if err != nil || len(list) != 2 {
		t.Fatalf("List len=%d err=%v, want 2", len(list), err)
	}
	if list[0].ID != p2.ID {
		t.Fatalf("List order first=%s, want latest effective date %s", list[0].ID, p2.ID)
	}

	unpaid := false
	list, err = repo.List(ctx, paymentrepoport.Filter{MemberID: memberID, Paid: &unpaid})
	if err != nil || len(list) != 1 || list[0].ID != p2.ID {
		t.Fatalf("List unpaid=%v err=%v", list, err)
	}
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	list, err = repo.List(ctx, paymentrepoport.Filter{MemberID: memberID, DueBefore: &cutoff})
	if err != nil || len(list) != 1 || list[0].ID != p1.ID {
		t.Fatalf("List dueBefore=%v err=%v", list, err)
	}
	list, err = repo.List(ctx, paymentrepoport.Filter{MemberID: memberID, Range: domain.TimeRange{From: cutoff}})
	if err != nil || len(list) != 1 || list[0].ID != p2.ID {
		t.Fatalf("List range=%v err=%v", list, err)
	}

	got.IsPaid = true
	got.UpdatedAt = now.Add(time.Hour)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(ctx, p2.ID)
	if !again.IsPaid {
		t.Fatalf("Update did not persist isPaid")
	}

	if err := repo.Delete(ctx, p1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p1.ID); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted err=%v, want %v", err, paymentrepoport.ErrNotFound)
	}
	if err := repo.Update(ctx, p1); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("Update deleted err=%v, want %v", err, paymentrepoport.ErrNotFound)
	}

	n, err := repo.DeleteByMember(ctx, memberID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByMember n=%d err=%v, want 1", n, err)
	}
	if _, err := repo.GetByID(ctx, p2.ID); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("GetByID after DeleteByMember err=%v, want %v", err, paymentrepoport.ErrNotFound)
	}
	if n, err := repo.DeleteByMember(ctx, memberID); err != nil || n != 0 {
		t.Fatalf("DeleteByMember again n=%d err=%v, want 0", n, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup, memberID := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	before, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}

	tag := uuid.NewString()[:8]
	now := time.Unix(1_700_000_000, 0).UTC()
	admin := domain.User{ID: domain.UserID(uuid.NewString()), Email: "Admin." + tag + "@Example.com", PasswordHash: []byte("h1"), Role: domain.RoleAdmin, CreatedAt: now}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("Create admin: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "admin."+tag+"@example.com")
	if err != nil {
		t.Fatalf("GetByEmail (case-insensitive): %v", err)
	}
	if got.ID != admin.ID || got.Role != domain.RoleAdmin || string(got.PasswordHash) != "h1" || got.MemberID != nil {
		t.Fatalf("GetByEmail()=%+v", got)
	}

	dup := admin
	dup.ID = domain.UserID(uuid.NewString())
	dup.Email = "admin." + tag + "@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("Create duplicate email err=%v, want %v", err, userrepoport.ErrEmailTaken)
	}

	mid := memberID
	member := domain.User{ID: domain.UserID(uuid.NewString()), Email: "m." + tag + "@example.com", PasswordHash: []byte("h2"), Role: domain.RoleMember, MemberID: &mid, CreatedAt: now}
	if err := repo.Create(ctx, member); err != nil {
		t.Fatalf("Create member user: %v", err)
	}
	second := member
	second.ID = domain.UserID(uuid.NewString())
	second.Email = "m2." + tag + "@example.com"
	if err := repo.Create(ctx, second); !errors.Is(err, userrepoport.ErrMemberBound) {
		t.Fatalf("Create second account for member err=%v, want %v", err, userrepoport.ErrMemberBound)
	}

	byID, err := repo.GetByID(ctx, member.ID)
	if err != nil || byID.MemberID == nil || *byID.MemberID != memberID {
		t.Fatalf("GetByID()=%+v err=%v", byID, err)
	}
	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, userrepoport.ErrNotFound)
	}

	after, err := repo.Count(ctx)
	if err != nil || after != before+2 {
		t.Fatalf("Count=%d err=%v, want %d", after, err, before+2)
	}
}

func RunBlobStore(t *testing.T, newStore BlobStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	path := "members/" + uuid.NewString() + "/certificat.pdf"
	obj, err := store.Put(ctx, blobstoreport.BucketDocuments, path, "application/pdf", bytes.NewReader([]byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Size != 8 || obj.Path != path || obj.Bucket != blobstoreport.BucketDocuments {
		t.Fatalf("Put()=%+v", obj)
	}

	rc, meta, err := store.Open(ctx, blobstoreport.BucketDocuments, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("Open read=%q err=%v", data, err)
	}
	if meta.ContentType != "application/pdf" {
		t.Fatalf("Open content type=%q, want application/pdf", meta.ContentType)
	}

	// Buckets are separate namespaces.
	if _, _, err := store.Open(ctx, blobstoreport.BucketPhoto, path); !errors.Is(err, blobstoreport.ErrNotFound) {
		t.Fatalf("Open other bucket err=%v, want %v", err, blobstoreport.ErrNotFound)
	}

	if err := store.Delete(ctx, blobstoreport.BucketDocuments, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Open(ctx, blobstoreport.BucketDocuments, path); !errors.Is(err, blobstoreport.ErrNotFound) {
		t.Fatalf("Open deleted err=%v, want %v", err, blobstoreport.ErrNotFound)
	}
	if err := store.Delete(ctx, blobstoreport.BucketDocuments, path); !errors.Is(err, blobstoreport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, blobstoreport.ErrNotFound)
	}
}

func RunURLCache(t *testing.T, newCache URLCacheFactory) {
	t.Helper()
	ctx := context.Background()

	cache, cleanup := newCache(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	path := "photos/" + uuid.NewString() + ".jpg"
	if _, ok, err := cache.Get(ctx, blobstoreport.BucketDocuments, path); err != nil || ok {
		t.Fatalf("Get empty ok=%v err=%v, want miss", ok, err)
	}
	if err := cache.Set(ctx, blobstoreport.BucketDocuments, path, "http://cdn/"+path); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get(ctx, blobstoreport.BucketDocuments, path)
	if err != nil || !ok || got != "http://cdn/"+path {
		t.Fatalf("Get=%q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := cache.Get(ctx, blobstoreport.BucketPhoto, path); ok {
		t.Fatalf("Get other bucket ok=true, want false")
	}
	if err := cache.Delete(ctx, blobstoreport.BucketDocuments, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, blobstoreport.BucketDocuments, path); ok {
		t.Fatalf("Get after Delete ok=true, want false")
	}
	// Deleting a missing key is not an error.
	if err := cache.Delete(ctx, blobstoreport.BucketDocuments, path); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}
