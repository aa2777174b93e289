package memberrepo

import (
	"strings"
	"testing"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

func TestBuildWhere_Empty(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(memberrepo.Filter{})
	if where != "" || len(args) != 0 {
		t.Fatalf("buildWhere(empty)=%q %v, want no clause", where, args)
	}
}

func TestBuildWhere_AllCriteria(t *testing.T) {
	t.Parallel()

	yes := true
	where, args := buildWhere(memberrepo.Filter{
		Query:            "dup 50%",
		Status:           memberrepo.StatusExpired,
		Etudiant:         &yes,
		SubscriptionType: domain.SubscriptionAnnual,
		Now:              time.Unix(0, 0),
	})
	if !strings.HasPrefix(where, " WHERE ") {
		t.Fatalf("buildWhere()=%q, want WHERE clause", where)
	}
	if got := strings.Count(where, " AND "); got != 4 {
		t.Fatalf("buildWhere() conditions joined=%d, want 4 ANDs in %q", got, where)
	}
	if len(args) != 5 {
		t.Fatalf("buildWhere() args=%v, want 5", args)
	}
	if args[4] != `%50\%%` {
		t.Fatalf("LIKE pattern=%q, want escaped percent", args[4])
	}
}
