package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"prepple/interview-api/internal/apperr"
)

// ResumeStore accepts candidate uploads and signs them later. SaveResume
// returns the storage reference ("<bucket>/<object>") kept in
// candidates.resume_url.
type ResumeStore interface {
	ObjectSigner
	SaveResume(ctx context.Context, file *multipart.FileHeader) (string, error)
	DeleteObject(ctx context.Context, objectPath string) error
}

// StorageService keeps uploaded résumés on local disk under
// <uploadPath>/<bucket>/ and hands out signed, expiring download links.
type StorageService interface {
	ResumeStore
	EnsureUploadDir() error
	// ResolveToken verifies a download token and returns the file to serve.
	ResolveToken(objectPath, token string) (string, error)
}

var allowedResumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

type storageService struct {
	uploadPath string
	bucket     string
	publicURL  string
	secret     []byte
	now        func() time.Time
}

func NewStorageService(uploadPath, bucket, publicURL, signingSecret string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
		bucket:     bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
		secret:     []byte(signingSecret),
		now:        time.Now,
	}
}

func (s *storageService) bucketDir() string {
	return filepath.Join(s.uploadPath, s.bucket)
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.bucketDir(), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// resumeObjectName picks a fresh object name that keeps the upload's
// extension, rejecting anything but PDF and DOCX.
func resumeObjectName(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedResumeExtensions[ext] {
		return "", fmt.Errorf("%w: invalid file extension: %q", apperr.ErrInput, ext)
	}
	return uuid.New().String() + ext, nil
}

// SaveResume implements ResumeStore.
func (s *storageService) SaveResume(_ context.Context, file *multipart.FileHeader) (string, error) {
	objectPath, err := resumeObjectName(file.Filename)
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.bucketDir(), objectPath))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return path.Join(s.bucket, objectPath), nil
}

func (s *storageService) localPath(objectPath string) string {
	return filepath.Join(s.bucketDir(), filepath.FromSlash(objectPath))
}

// DeleteObject implements ResumeStore.
func (s *storageService) DeleteObject(_ context.Context, objectPath string) error {
	if err := os.Remove(s.localPath(objectPath)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Stat implements ObjectSigner.
func (s *storageService) Stat(_ context.Context, objectPath string) error {
	info, err := os.Stat(s.localPath(objectPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: object %s does not exist", apperr.ErrAccessDenied, objectPath)
		}
		return fmt.Errorf("%w: stat %s: %w", apperr.ErrConfiguration, objectPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is not an object", apperr.ErrAccessDenied, objectPath)
	}
	return nil
}

type downloadClaims struct {
	Bucket string `json:"bkt"`
	jwt.RegisteredClaims
}

// Sign implements ObjectSigner. The token is scoped to one object and
// expires exactly ttl after issuedAt.
func (s *storageService) Sign(_ context.Context, objectPath string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: storage signing secret is not set", apperr.ErrConfiguration)
	}

	claims := downloadClaims{
		Bucket: s.bucket,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   objectPath,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}

	return fmt.Sprintf("%s/files/%s/%s?token=%s", s.publicURL, s.bucket, objectPath, token), nil
}

// MaxTTL implements ObjectSigner.
func (s *storageService) MaxTTL() time.Duration {
	return 24 * time.Hour
}

func (s *storageService) ResolveToken(objectPath, token string) (string, error) {
	var claims downloadClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: invalid download token: %w", apperr.ErrAccessDenied, err)
	}

	if claims.Bucket != s.bucket || claims.Subject != objectPath {
		return "", fmt.Errorf("%w: token is not valid for %s", apperr.ErrAccessDenied, objectPath)
	}

	return s.localPath(objectPath), nil
}
