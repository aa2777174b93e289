package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/blobstore"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	"github.com/bodyforce/admin-api/internal/ports/out/urlcache"
)

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

type Service struct {
	store   blobstore.Store
	cache   urlcache.Cache
	members memberrepo.Repository
	clk     clock.Clock
	baseURL string

	Log *slog.Logger
}

// NewService wires object storage to members. baseURL is the public origin that
// serves GET /storage/{bucket}/*.
func NewService(store blobstore.Store, cache urlcache.Cache, members memberrepo.Repository, clk clock.Clock, baseURL string) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		members: members,
		clk:     clk,
		baseURL: strings.TrimRight(baseURL, "/"),
		Log:     slog.Default(),
	}
}

// PublicURL returns the URL under which the object is served. The URL is cached
// per (bucket, path) until the object is deleted. Cache failures are logged and
// the URL is computed directly.
func (s *Service) PublicURL(ctx context.Context, bucket, p string) (string, error) {
	if !knownBucket(bucket) {
		return "", apperr.Field("bucket", "unknown bucket")
	}
	if u, ok, err := s.cache.Get(ctx, bucket, p); err != nil {
		s.logger().WarnContext(ctx, "url cache read failed", "key", urlcache.Key(bucket, p), "err", err)
	} else if ok {
		return u, nil
	}

	u := s.baseURL + "/storage/" + bucket + "/" + escapePath(p)
	if err := s.cache.Set(ctx, bucket, p, u); err != nil {
		s.logger().WarnContext(ctx, "url cache write failed", "key", urlcache.Key(bucket, p), "err", err)
	}
	return u, nil
}

// UploadMemberFile stores a document and attaches it to the member.
func (s *Service) UploadMemberFile(ctx context.Context, id domain.MemberID, name, contentType string, r io.Reader) (domain.MemberFile, error) {
	m, err := s.getMember(ctx, id)
	if err != nil {
		return domain.MemberFile{}, err
	}
	name = cleanFileName(name)
	if name == "" {
		return domain.MemberFile{}, apperr.Field("file", "file name required")
	}
	body, sniffed, err := sniff(r)
	if err != nil {
		return domain.MemberFile{}, err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffed.String()
	}

	key := fmt.Sprintf("members/%s/%s-%s", m.ID, uuid.NewString(), name)
	if _, err := s.store.Put(ctx, blobstore.BucketDocuments, key, contentType, body); err != nil {
		return domain.MemberFile{}, fmt.Errorf("store member file: %w", err)
	}
	u, err := s.PublicURL(ctx, blobstore.BucketDocuments, key)
	if err != nil {
		return domain.MemberFile{}, err
	}

	f := domain.MemberFile{Name: name, URL: u, Path: key}
	m.Files = append(m.Files, f)
	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.members.Update(ctx, m); err != nil {
		s.discard(ctx, blobstore.BucketDocuments, key)
		return domain.MemberFile{}, err
	}
	return f, nil
}

// DeleteMemberFile detaches a document from the member and removes the object.
func (s *Service) DeleteMemberFile(ctx context.Context, id domain.MemberID, p string) error {
	m, err := s.getMember(ctx, id)
	if err != nil {
		return err
	}
	idx := -1
	for i, f := range m.Files {
		if f.Path == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFound("FILE_NOT_FOUND", "file not found")
	}

	if err := s.removeObject(ctx, blobstore.BucketDocuments, p); err != nil {
		return err
	}
	m.Files = append(m.Files[:idx:idx], m.Files[idx+1:]...)
	m.UpdatedAt = s.clk.Now().UTC()
	return s.members.Update(ctx, m)
}

// UploadPhoto replaces the member's photo. Only images are accepted.
func (s *Service) UploadPhoto(ctx context.Context, id domain.MemberID, r io.Reader) (domain.Member, error) {
	m, err := s.getMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	body, mt, err := sniff(r)
	if err != nil {
		return domain.Member{}, err
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return domain.Member{}, apperr.Field("photo", "must be an image, got "+mt.String())
	}

	key := fmt.Sprintf("photos/%s/%s%s", m.ID, uuid.NewString(), mt.Extension())
	if _, err := s.store.Put(ctx, blobstore.BucketDocuments, key, mt.String(), body); err != nil {
		return domain.Member{}, fmt.Errorf("store photo: %w", err)
	}

	previous := m.Photo
	m.Photo = key
	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.members.Update(ctx, m); err != nil {
		s.discard(ctx, blobstore.BucketDocuments, key)
		return domain.Member{}, err
	}
	if bucket, p, ok := PhotoLocation(previous); ok {
		if err := s.removeObject(ctx, bucket, p); err != nil {
			s.logger().WarnContext(ctx, "previous photo not removed", "member_id", string(m.ID), "err", err)
		}
	}
	return m, nil
}

// ResolvePhoto turns a stored photo reference into a URL. Absolute URLs are
// returned unchanged.
func (s *Service) ResolvePhoto(ctx context.Context, photo string) (string, error) {
	photo = strings.TrimSpace(photo)
	if photo == "" {
		return "", nil
	}
	if isAbsoluteURL(photo) {
		return photo, nil
	}
	bucket, p, _ := PhotoLocation(photo)
	return s.PublicURL(ctx, bucket, p)
}

// PhotoLocation maps a photo reference to its bucket and path. ok is false for
// empty references and absolute URLs, which are not stored here.
//
//	photo/<p>    legacy bucket, path <p>
//	photos/...   documents bucket
//	members/...  documents bucket
//	anything     legacy bucket
func PhotoLocation(photo string) (bucket, p string, ok bool) {
	photo = strings.TrimLeft(strings.TrimSpace(photo), "/")
	if photo == "" || isAbsoluteURL(photo) {
		return "", "", false
	}
	switch {
	case strings.HasPrefix(photo, blobstore.BucketPhoto+"/"):
		return blobstore.BucketPhoto, strings.TrimPrefix(photo, blobstore.BucketPhoto+"/"), true
	case strings.HasPrefix(photo, "photos/"), strings.HasPrefix(photo, "members/"):
		return blobstore.BucketDocuments, photo, true
	}
	return blobstore.BucketPhoto, photo, true
}

// Open streams a stored object.
func (s *Service) Open(ctx context.Context, bucket, p string) (io.ReadCloser, blobstore.Object, error) {
	if !knownBucket(bucket) || p == "" {
		return nil, blobstore.Object{}, apperr.NotFound("OBJECT_NOT_FOUND", "object not found")
	}
	rc, obj, err := s.store.Open(ctx, bucket, p)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, blobstore.Object{}, apperr.NotFound("OBJECT_NOT_FOUND", "object not found")
		}
		return nil, blobstore.Object{}, err
	}
	return rc, obj, nil
}

// RemoveMemberObjects deletes every document and the photo of m. It keeps going
// after a failure and returns all errors joined.
func (s *Service) RemoveMemberObjects(ctx context.Context, m domain.Member) error {
	var errs []error
	for _, f := range m.Files {
		if err := s.removeObject(ctx, blobstore.BucketDocuments, f.Path); err != nil {
			errs = append(errs, err)
		}
	}
	if bucket, p, ok := PhotoLocation(m.Photo); ok {
		if err := s.removeObject(ctx, bucket, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) removeObject(ctx context.Context, bucket, p string) error {
	if err := s.store.Delete(ctx, bucket, p); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", urlcache.Key(bucket, p), err)
	}
	if err := s.cache.Delete(ctx, bucket, p); err != nil {
		return fmt.Errorf("invalidate url %s: %w", urlcache.Key(bucket, p), err)
	}
	return nil
}

// discard removes an object written before a failed member update.
func (s *Service) discard(ctx context.Context, bucket, p string) {
	if err := s.removeObject(ctx, bucket, p); err != nil {
		s.logger().WarnContext(ctx, "orphan object not removed", "key", urlcache.Key(bucket, p), "err", err)
	}
}

func (s *Service) getMember(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return domain.Member{}, err
	}
	return m, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// sniff detects the type of r from its first bytes and returns a reader that
// still yields the whole content.
func sniff(r io.Reader) (io.Reader, *mimetype.MIME, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, nil, apperr.Field("file", "empty upload")
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), r), mimetype.Detect(head), nil
}

func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func knownBucket(b string) bool {
	return b == blobstore.BucketDocuments || b == blobstore.BucketPhoto
}
