package userrepo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/adapters/contracttest"
	pgmemberrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/memberrepo"
	"github.com/bodyforce/admin-api/internal/adapters/postgres/testutil"
	"github.com/bodyforce/admin-api/internal/domain"
	userrepoport "github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

func TestContract_PostgresUserRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func(), domain.MemberID) {
		t.Helper()
		now := time.Now().UTC()
		memberID := domain.MemberID(uuid.NewString())
		if err := pgmemberrepo.NewRepo(pool).Create(context.Background(), domain.Member{
			ID: memberID, Name: "Compte", FirstName: "Claire", CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("seed member: %v", err)
		}
		return NewRepo(pool), nil, memberID
	})
}
