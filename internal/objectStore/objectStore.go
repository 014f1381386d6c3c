package objectStore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/customHttpClient"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// Entry is one listed object.
type Entry struct {
	Path string
	Size int64
}

// Store is the object store adapter. All blobs live under a single
// configured bucket; paths are logical keys chosen by the caller.
type Store interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
	PutStream(ctx context.Context, path string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	Presign(ctx context.Context, path string, ttl time.Duration) (string, error)
	// Degraded reports whether the adapter has fallen back to
	// read-local, no-remote-write mode after a connection failure.
	Degraded() bool
}

type minioStore struct {
	client   *minio.Client
	bucket   string
	degraded atomic.Bool
	logger   *logger_i.Logger
}

// New connects to the S3-compatible endpoint and creates the bucket on first
// use. A connection failure does not error out: the store starts degraded
// and the ingest orchestrator refuses new jobs until it recovers.
func New(ctx context.Context, cfg config.Settings) (Store, error) {
	if cfg.ObjectStoreEndpoint == "" {
		return nil, faults.New(faults.KindFatal, "OBJECT_STORE_ENDPOINT is not set")
	}

	log := logger_i.NewLogger("ObjectStore")
	client, err := minio.New(cfg.ObjectStoreEndpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, ""),
		Secure:    cfg.ObjectStoreUseTLS,
		Transport: customHttpClient.Transport(),
	})
	if err != nil {
		return nil, faults.Wrap(faults.KindFatal, "object store client init failed", err)
	}

	s := &minioStore{client: client, bucket: cfg.ArchiveBucket, logger: log}

	if err := s.ensureBucket(ctx); err != nil {
		log.Error("Bucket check failed, entering read-local mode", "error", err)
		s.degraded.Store(true)
	}
	return s, nil
}

func (s *minioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		// A concurrent first-touch may have won the race.
		exists, checkErr := s.client.BucketExists(ctx, s.bucket)
		if checkErr == nil && exists {
			return nil
		}
	}
	return err
}

func (s *minioStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	return s.PutStream(ctx, path, bytes.NewReader(data), int64(len(data)))
}

func (s *minioStore) PutStream(ctx context.Context, path string, r io.Reader, size int64) (string, error) {
	if s.degraded.Load() {
		if err := s.ensureBucket(ctx); err != nil {
			return "", faults.Transient("object store unavailable, remote writes refused", err)
		}
		s.degraded.Store(false)
		s.logger.Info("Object store recovered, leaving read-local mode")
	}

	opts := minio.PutObjectOptions{}
	if size > config.StreamUploadThreshold {
		// multipart streaming; never buffer large objects fully
		opts.PartSize = config.StreamUploadThreshold
	}
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, opts)
	if err != nil {
		s.markIfConnectionLost(err)
		return "", faults.Transient("object store put failed", err)
	}
	return "s3://" + s.bucket + "/" + path, nil
}

func (s *minioStore) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		s.markIfConnectionLost(err)
		return nil, faults.Transient("object store get failed", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		s.markIfConnectionLost(err)
		return nil, faults.Transient("object store read failed", err)
	}
	return data, nil
}

func (s *minioStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return false, nil
		}
		s.markIfConnectionLost(err)
		return false, faults.Transient("object store stat failed", err)
	}
	return true, nil
}

func (s *minioStore) Delete(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		s.markIfConnectionLost(err)
		return faults.Transient("object store delete failed", err)
	}
	return nil
}

func (s *minioStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			s.markIfConnectionLost(obj.Err)
			return nil, faults.Transient("object store list failed", obj.Err)
		}
		entries = append(entries, Entry{Path: obj.Key, Size: obj.Size})
	}
	return entries, nil
}

func (s *minioStore) Presign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = config.PresignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, ttl, url.Values{})
	if err != nil {
		return "", faults.Transient("presign failed", err)
	}
	return u.String(), nil
}

func (s *minioStore) Degraded() bool { return s.degraded.Load() }

func (s *minioStore) markIfConnectionLost(err error) {
	if minio.IsNetworkOrHostDown(err, false) {
		if s.degraded.CompareAndSwap(false, true) {
			s.logger.Error("Object store connection lost, entering read-local mode", "error", err)
		}
	}
}
