package memberrepo

import (
	"sort"
	"strings"

	"github.com/bodyforce/admin-api/internal/domain"
)

// Tokens splits a search query into lower-cased tokens.
func Tokens(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// Matches reports whether m satisfies every criterion of f except paging.
// Adapters that filter in process use it so all backends agree.
func (f Filter) Matches(m domain.Member) bool {
	switch f.Status {
	case StatusActive:
		if domain.IsExpired(m.EndDate, f.Now) {
			return false
		}
	case StatusExpired:
		if !domain.IsExpired(m.EndDate, f.Now) {
			return false
		}
	}
	if f.Etudiant != nil && m.Etudiant != *f.Etudiant {
		return false
	}
	if f.SubscriptionType != "" && m.SubscriptionType != f.SubscriptionType {
		return false
	}
	tokens := Tokens(f.Query)
	if len(tokens) == 0 {
		return true
	}
	fields := []string{
		strings.ToLower(m.Name),
		strings.ToLower(m.FirstName),
		strings.ToLower(m.Email),
		strings.ToLower(string(m.BadgeID)),
	}
	for _, t := range tokens {
		found := false
		for _, f := range fields {
			if strings.Contains(f, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SortMembers applies the canonical list ordering in place.
func SortMembers(ms []domain.Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		ni, nj := strings.ToLower(ms[i].Name), strings.ToLower(ms[j].Name)
		if ni != nj {
			return ni < nj
		}
		fi, fj := strings.ToLower(ms[i].FirstName), strings.ToLower(ms[j].FirstName)
		if fi != fj {
			return fi < fj
		}
		return ms[i].ID < ms[j].ID
	})
}

// Paginate applies Offset and Limit to an already filtered and sorted slice.
func (f Filter) Paginate(ms []domain.Member) []domain.Member {
	if f.Offset > 0 {
		if f.Offset >= len(ms) {
			return []domain.Member{}
		}
		ms = ms[f.Offset:]
	}
	if f.Limit > 0 && len(ms) > f.Limit {
		ms = ms[:f.Limit]
	}
	return ms
}
