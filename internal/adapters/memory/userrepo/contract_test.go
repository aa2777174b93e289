package userrepo

import (
	"testing"

	"github.com/bodyforce/admin-api/internal/adapters/contracttest"
	"github.com/bodyforce/admin-api/internal/domain"
	userrepoport "github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

func TestContract_UserRepo(t *testing.T) {
	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func(), domain.MemberID) {
		t.Helper()
		return NewRepo(), nil, domain.MemberID("member-1")
	})
}
