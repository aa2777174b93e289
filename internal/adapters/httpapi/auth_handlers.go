package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"

	"github.com/bodyforce/admin-api/internal/domain"
)

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var body CredentialsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.SignUp(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger().InfoContext(r.Context(), "account created", "user_id", string(sess.User.ID), "role", string(sess.User.Role))
	writeJSON(w, http.StatusCreated, sessionFromApp(sess))
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body CredentialsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFromApp(sess))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	p, err := s.Auth.Me(r.Context(), domain.SubjectID(sub))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := MeResponse{User: userFromDomain(p.User), Member: nullable.NewNullNullable[MemberJSON]()}
	if p.Member != nil {
		out.Member = nullable.NewNullableWithValue(s.memberFromDomain(r.Context(), *p.Member))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) checkInvitation(w http.ResponseWriter, r *http.Request) {
	v, err := s.Auth.CheckInvitation(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InvitationViewResponse{
		Member:    memberSummaryFromDomain(v.Member),
		Email:     v.Email,
		ExpiresAt: v.ExpiresAt,
	})
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	var body AcceptInvitationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.AcceptInvitation(r.Context(), chi.URLParam(r, "token"), body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionFromApp(sess))
}
