package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bodyforce/admin-api/internal/app/members"
)

const defaultMemberPageSize = 50

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	etudiant, err := boolQuery(r, "etudiant")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", defaultMemberPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.Members.List(r.Context(), members.ListInput{
		Query:            q.Get("q"),
		Status:           strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Etudiant:         etudiant,
		SubscriptionType: q.Get("subscriptionType"),
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := MemberListResponse{Members: make([]MemberJSON, 0, len(res.Members)), Total: res.Total, Limit: limit, Offset: offset}
	for _, m := range res.Members {
		out.Members = append(out.Members, s.memberFromDomain(r.Context(), m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) memberCounts(w http.ResponseWriter, r *http.Request) {
	c, err := s.Members.Counts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countsFromApp(c))
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var body CreateMemberRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Members.Create(r.Context(), createMemberInputFromRequest(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.Members.Get(r.Context(), memberIDParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	id := memberIDParam(r)
	var body UpdateMemberRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	bodyHash, err := hashUpdateMemberBody(id, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.idempotentJSON(w, r, "/members/{memberId}", bodyHash, func() (any, error) {
		m, err := s.Members.Update(r.Context(), id, updateMemberInputFromRequest(body))
		if err != nil {
			return nil, err
		}
		return MemberResponse{Member: s.memberFromDomain(r.Context(), m)}, nil
	})
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.Members.Delete(r.Context(), memberIDParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renewMember accepts an empty body, which renews from the default start.
func (s *Server) renewMember(w http.ResponseWriter, r *http.Request) {
	var body RenewMemberRequest
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, errMissingBody) {
		s.fail(w, r, err)
		return
	}
	m, err := s.Members.Renew(r.Context(), memberIDParam(r), datePtr(body.StartDate))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) inviteMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.Auth.Invite(r.Context(), memberIDParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	m, err := s.Auth.RevokeInvitation(r.Context(), memberIDParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) listMemberPayments(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Payments.ListByMember(r.Context(), memberIDParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsFromDomain(ps))
}
