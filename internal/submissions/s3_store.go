package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// DefaultS3Key is used when no object key is configured.
const DefaultS3Key = "demo-requests.json"

// S3Store keeps the same {"requests": [...]} document as FileStore, in a
// single S3 object. Appends read, modify and rewrite the object under a
// process-wide mutex.
type S3Store struct {
	client S3API
	bucket string
	key    string
	mu     sync.Mutex
	logger *logging.Logger
	now    func() time.Time
}

var _ Store = (*S3Store)(nil)

// NewS3Store returns a store writing bucket/key.
func NewS3Store(client S3API, bucket, key string, logger *logging.Logger) *S3Store {
	if client == nil {
		panic("submissions: s3 client required")
	}
	if bucket == "" {
		panic("submissions: s3 bucket required")
	}
	if key == "" {
		key = DefaultS3Key
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{client: client, bucket: bucket, key: key, logger: logger, now: time.Now}
}

// Append adds rec to the document and returns its id.
func (s *S3Store) Append(ctx context.Context, rec *Record) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", fmt.Errorf("%w: record id required", ErrStoreUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, corrupt, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if corrupt {
		if err := s.moveAside(ctx); err != nil {
			return "", err
		}
	}
	doc.Requests = append(doc.Requests, *rec)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal: %v", ErrStoreUnavailable, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3 put %s: %v", ErrStoreUnavailable, s.key, err)
	}
	s.logger.Debug("demo request stored", "id", rec.ID, "store", "s3", "count", len(doc.Requests))
	return rec.ID, nil
}

// List returns every stored record in insertion order.
func (s *S3Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Requests, nil
}

// moveAside copies an unparseable object to <key>.corrupt-<nanos> before it
// gets rewritten.
func (s *S3Store) moveAside(ctx context.Context) error {
	backup := fmt.Sprintf("%s.corrupt-%d", s.key, s.now().UnixNano())
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(backup),
		CopySource: aws.String(s.bucket + "/" + s.key),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 copy %s: %v", ErrStoreUnavailable, backup, err)
	}
	s.logger.Warn("demo request object unparseable, starting empty", "bucket", s.bucket, "key", s.key, "backup", backup)
	return nil
}

// load returns an empty document when the object does not exist yet or does
// not parse; corrupt reports the latter. Transport failures are returned.
func (s *S3Store) load(ctx context.Context) (doc document, corrupt bool, err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return document{}, false, nil
		}
		return document{}, false, fmt.Errorf("%w: s3 get %s: %v", ErrStoreUnavailable, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return document{}, false, fmt.Errorf("%w: s3 read %s: %v", ErrStoreUnavailable, s.key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return document{}, false, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Debug("demo request object does not parse", "bucket", s.bucket, "key", s.key, "error", err)
		return document{}, true, nil
	}
	return doc, false, nil
}
