package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ adapter.ObjectStorage = (*MinioStorage)(nil)

// MinioStorage reads dataset and model objects from an S3-compatible bucket.
type MinioStorage struct {
	cli    *minio.Client
	bucket string
}

func NewMinioStorage(cfg config.StorageConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStorage{cli: cli, bucket: cfg.Bucket}, nil
}

func (s *MinioStorage) HeadSize(ctx context.Context, key string) (int64, error) {
	info, err := s.cli.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", key, err)
	}
	return info.Size, nil
}

func (s *MinioStorage) Download(ctx context.Context, key, localPath string, obs adapter.ByteObserver) error {
	obj, err := s.cli.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	if err := writeFile(ctx, localPath, obj, obs); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

// writeFile streams src into a temp file next to localPath and renames it
// into place, so a cancelled transfer never leaves a partial artifact that a
// later download would skip.
func writeFile(ctx context.Context, localPath string, src io.Reader, obs adapter.ByteObserver) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	tmp := localPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, &progressReader{ctx: ctx, r: src, obs: obs})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, localPath)
}

type progressReader struct {
	ctx context.Context
	r   io.Reader
	obs adapter.ByteObserver
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 && p.obs != nil {
		p.obs.OnBytesTransferred(int64(n))
	}
	return n, err
}
