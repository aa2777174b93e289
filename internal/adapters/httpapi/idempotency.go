package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// idempotentJSON runs fn and writes its result as a 200 JSON response.
//
// With an Idempotency-Key header:
// - a retry with the same subject, key, route and body replays the stored response
// - the same key with a different body is rejected with 409
func (s *Server) idempotentJSON(w http.ResponseWriter, r *http.Request, route string, bodyHash string, fn func() (any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.Idem == nil {
		resp, err := fn()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx := r.Context()
	sub, _ := SubjectFromContext(ctx)
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  domain.SubjectID(sub),
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}
	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		s.fail(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now(),
		}); err != nil {
			s.logger().WarnContext(ctx, "idempotency meta not stored", "route", route, "err", err)
		}
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		s.fail(w, r, err)
		return
	} else if ok && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := fn()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	}); err != nil {
		s.logger().WarnContext(ctx, "idempotent response not stored", "route", route, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// hashUpdateMemberBody fingerprints a member patch. Fields with normalization
// semantics are canonicalized first so equivalent retries hash the same.
func hashUpdateMemberBody(memberID domain.MemberID, b UpdateMemberRequest) (string, error) {
	canon := b
	normalizeNullableString(&canon.Name, domain.NormalizeHumanName)
	normalizeNullableString(&canon.FirstName, domain.NormalizeHumanName)
	normalizeNullableString(&canon.Email, strings.TrimSpace)
	normalizeNullableString(&canon.BadgeID, strings.TrimSpace)
	return hashBody(struct {
		MemberID string              `json:"memberId"`
		Body     UpdateMemberRequest `json:"body"`
	}{string(memberID), canon})
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeNullableString replaces a present value with fn(value). Set
// allocates a fresh map, so the caller's copy is left untouched.
func normalizeNullableString(n *nullable.Nullable[string], fn func(string) string) {
	if !n.IsSpecified() || n.IsNull() {
		return
	}
	if v, err := n.Get(); err == nil {
		n.Set(fn(v))
	}
}
