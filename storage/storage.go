package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cppla/phishguard/config"
)

// Store persists uploaded files and returns the public path clients use.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, publicPath string) error
	Kind() string
}

// New builds the store selected by storage.driver.
func New(sc config.StorageSection) (Store, error) {
	if sc.Driver == "minio" {
		return NewMinioStore(context.Background(), sc)
	}
	return NewLocalStore(sc.LocalDir, sc.PublicPrefix)
}

// LocalStore writes files below a directory served as static content.
type LocalStore struct {
	Dir    string
	Prefix string
}

func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, Prefix: strings.TrimSuffix(prefix, "/")}, nil
}

func (ls *LocalStore) Kind() string { return "local" }

func (ls *LocalStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	name = filepath.Base(name)
	dst := filepath.Join(ls.Dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return ls.Prefix + "/" + name, nil
}

func (ls *LocalStore) Delete(_ context.Context, publicPath string) error {
	err := os.Remove(filepath.Join(ls.Dir, filepath.Base(publicPath)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MinioStore puts objects into an S3-compatible bucket.
type MinioStore struct {
	Client    *minio.Client
	Bucket    string
	PublicURL string
}

func NewMinioStore(ctx context.Context, sc config.StorageSection) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(sc.MinioEndpoint, "https://"), "http://")

	var creds *credentials.Credentials
	if sc.MinioAccessKey == "" || sc.MinioSecretKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(sc.MinioAccessKey, sc.MinioSecretKey, "")
	}
	client, err := minio.New(endpoint, &minio.Options{Creds: creds, Secure: sc.MinioUseSSL})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, sc.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", sc.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, sc.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", sc.MinioBucket, err)
		}
	}

	publicURL := sc.MinioPublicURL
	if publicURL == "" {
		scheme := "http"
		if sc.MinioUseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, sc.MinioBucket)
	}
	return &MinioStore{Client: client, Bucket: sc.MinioBucket, PublicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (ms *MinioStore) Kind() string { return "minio" }

func (ms *MinioStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := ms.Client.PutObject(ctx, ms.Bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return ms.PublicURL + "/" + name, nil
}

func (ms *MinioStore) Delete(ctx context.Context, publicPath string) error {
	key := publicPath[strings.LastIndex(publicPath, "/")+1:]
	return ms.Client.RemoveObject(ctx, ms.Bucket, key, minio.RemoveObjectOptions{})
}
