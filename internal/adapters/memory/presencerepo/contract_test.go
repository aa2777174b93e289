package presencerepo

import (
	"testing"

	"github.com/bodyforce/admin-api/internal/adapters/contracttest"
	presencerepoport "github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
)

func TestContract_PresenceRepo(t *testing.T) {
	contracttest.RunPresenceRepo(t, func(t *testing.T) (presencerepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
