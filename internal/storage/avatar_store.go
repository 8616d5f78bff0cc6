// Package storage keeps user avatars in an S3-compatible object store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/taotie8304/lu-gang-connect-project/internal/config"
)

// ErrUnsupportedFormat rejects anything but raster avatar formats. SVG is
// excluded on purpose: user-supplied SVG can carry script.
var ErrUnsupportedFormat = errors.New("unsupported avatar format")

const maxAvatarBytes = 2 << 20 // 2 MiB

type AvatarStore struct {
	client *minio.Client
	bucket string
}

func NewAvatarStore(cfg config.StorageConfig) (*AvatarStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	return &AvatarStore{
		client: client,
		bucket: cfg.BucketAvatars,
	}, nil
}

func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Put sniffs the content, stores it under the user's id and returns the
// object path recorded on the account.
func (s *AvatarStore) Put(ctx context.Context, userID string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > maxAvatarBytes {
		return "", fmt.Errorf("avatar exceeds %d bytes", maxAvatarBytes)
	}

	ext, mime, err := sniffAvatar(data)
	if err != nil {
		return "", err
	}

	object := fmt.Sprintf("avatars/%s.%s", userID, ext)
	_, err = s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}

	return "/" + s.bucket + "/" + object, nil
}

func sniffAvatar(head []byte) (ext string, mime string, err error) {
	switch {
	case isJPEG(head):
		return "jpg", "image/jpeg", nil
	case isPNG(head):
		return "png", "image/png", nil
	case isWEBP(head):
		return "webp", "image/webp", nil
	default:
		return "", "", ErrUnsupportedFormat
	}
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
