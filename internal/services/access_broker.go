package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"prepple/interview-api/internal/apperr"
)

// ObjectSigner is a storage backend able to prove an object exists and to
// mint a time-limited URL for it.
type ObjectSigner interface {
	Stat(ctx context.Context, objectPath string) error
	Sign(ctx context.Context, objectPath string, issuedAt time.Time, ttl time.Duration) (string, error)
	MaxTTL() time.Duration
}

type AccessGrant struct {
	URL        string
	ObjectPath string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// ResourceAccessBroker turns a private storage reference into a signed URL.
// Every call issues a fresh grant; nothing is cached.
type ResourceAccessBroker interface {
	IssueAccess(ctx context.Context, storageRef string, ttl time.Duration) (*AccessGrant, error)
}

type accessBroker struct {
	signer ObjectSigner
	bucket string
	now    func() time.Time
}

func NewAccessBroker(signer ObjectSigner, bucket string) ResourceAccessBroker {
	return &accessBroker{signer: signer, bucket: bucket, now: time.Now}
}

// IssueAccess implements ResourceAccessBroker.
func (b *accessBroker) IssueAccess(ctx context.Context, storageRef string, ttl time.Duration) (*AccessGrant, error) {
	if ttl <= 0 || ttl > b.signer.MaxTTL() {
		return nil, fmt.Errorf("%w: ttl %s outside (0, %s]", apperr.ErrInput, ttl, b.signer.MaxTTL())
	}

	objectPath, err := ObjectPathFromRef(storageRef, b.bucket)
	if err != nil {
		return nil, err
	}

	if err := b.signer.Stat(ctx, objectPath); err != nil {
		return nil, err
	}

	issuedAt := b.now()
	signed, err := b.signer.Sign(ctx, objectPath, issuedAt, ttl)
	if err != nil {
		return nil, err
	}

	return &AccessGrant{
		URL:        signed,
		ObjectPath: objectPath,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(ttl),
	}, nil
}

// ObjectPathFromRef extracts the in-bucket object path from a stored
// reference. Full URLs are accepted only to read the path after
// "/<bucket>/"; their host is discarded.
func ObjectPathFromRef(storageRef, bucket string) (string, error) {
	ref := strings.TrimSpace(storageRef)
	if ref == "" {
		return "", fmt.Errorf("%w: empty storage reference", apperr.ErrAccessDenied)
	}

	marker := "/" + bucket + "/"
	var objectPath string

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: unparseable storage reference", apperr.ErrAccessDenied)
		}
		idx := strings.Index(u.Path, marker)
		if idx < 0 {
			return "", fmt.Errorf("%w: reference is outside bucket %q", apperr.ErrAccessDenied, bucket)
		}
		objectPath = u.Path[idx+len(marker):]
	} else {
		objectPath = strings.TrimPrefix(ref, "/")
		if idx := strings.Index("/"+objectPath, marker); idx >= 0 {
			objectPath = ("/" + objectPath)[idx+len(marker):]
		}
	}

	if objectPath == "" || strings.ContainsAny(objectPath, "?#\\") {
		return "", fmt.Errorf("%w: invalid object path", apperr.ErrAccessDenied)
	}
	for _, segment := range strings.Split(objectPath, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: invalid object path", apperr.ErrAccessDenied)
		}
	}

	return objectPath, nil
}
