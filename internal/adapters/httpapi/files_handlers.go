package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bodyforce/admin-api/internal/app/apperr"
)

// uploadMemberFile expects multipart/form-data with a "file" part.
func (s *Server) uploadMemberFile(w http.ResponseWriter, r *http.Request) {
	part, err := s.filePart(w, r, "file")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer part.Close()

	f, err := s.Files.UploadMemberFile(r.Context(), memberIDParam(r), part.FileName(), part.Header.Get("Content-Type"), part)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FileResponse{File: MemberFileJSON{Name: f.Name, URL: f.URL, Path: f.Path}})
}

func (s *Server) deleteMemberFile(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSpace(r.URL.Query().Get("path"))
	if p == "" {
		s.fail(w, r, apperr.Field("path", "required"))
		return
	}
	if err := s.Files.DeleteMemberFile(r.Context(), memberIDParam(r), p); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadPhoto expects multipart/form-data with a "photo" part.
func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	part, err := s.filePart(w, r, "photo")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer part.Close()

	m, err := s.Files.UploadPhoto(r.Context(), memberIDParam(r), part)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: s.memberFromDomain(r.Context(), m)})
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	p := chi.URLParam(r, "*")
	// chi routes on RawPath when the path holds escaped separators.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}

	rc, obj, err := s.Files.Open(r.Context(), bucket, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if !inlineContentType(ct) {
		w.Header().Set("Content-Disposition", attachment(path.Base(p)))
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger().WarnContext(r.Context(), "object stream interrupted", "bucket", bucket, "path", p, "err", err)
	}
}

// inlineContentType reports whether a stored object may render in the browser.
// SVG is excluded because it can carry script.
func inlineContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") && mt != "image/svg+xml"
}

// filePart streams the multipart body up to the named part. The upload is
// never buffered to disk.
func (s *Server) filePart(w http.ResponseWriter, r *http.Request, name string) (*multipart.Part, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Validation("expected multipart/form-data", map[string]any{name: "required"})
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperr.Field(name, "required")
		}
		if err != nil {
			return nil, apperr.Validation("malformed multipart body", map[string]any{"body": err.Error()})
		}
		if part.FormName() == name {
			return part, nil
		}
		_ = part.Close()
	}
}
