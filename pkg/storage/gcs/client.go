package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ErrUnsupportedContentType is returned for uploads outside the image allow-list.
var ErrUnsupportedContentType = errors.New("unsupported image content type")

// Object identifies an uploaded image: URL is public, ID is what Delete accepts.
type Object struct {
	URL string
	ID  string
}

type objectStore interface {
	insert(ctx context.Context, bucket string, obj *storage.Object, body io.Reader) (*storage.Object, error)
	delete(ctx context.Context, bucket, name string) error
	bucket(ctx context.Context, bucket string) error
}

// Client uploads and deletes product images in a single bucket.
type Client struct {
	objects       objectStore
	bucketName    string
	publicBaseURL string
	prefix        string
	maxBytes      int64
	logg          *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a storage JSON API client. Credentials come from inline JSON, a
// credentials file, or application default credentials, in that order.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	if gcp.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(gcp.ProjectID))
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	client := newClient(&apiStore{svc: svc}, cfg, logg)
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("gcs client ready for bucket %s", cfg.BucketName))
	}
	return client, nil
}

func newClient(objects objectStore, cfg config.GCSConfig, logg *logger.Logger) *Client {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	return &Client{
		objects:       objects,
		bucketName:    cfg.BucketName,
		publicBaseURL: base,
		prefix:        strings.Trim(cfg.ObjectPrefix, "/"),
		maxBytes:      int64(maxMB) << 20,
		logg:          logg,
	}
}

// MaxBytes is the largest accepted upload.
func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

// Upload stores body under a fresh object name and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	ct := normalizeContentType(contentType)
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return Object{}, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	if fromName := strings.ToLower(path.Ext(filename)); fromName != "" {
		if types, _ := mime.ExtensionsByType(ct); containsString(types, fromName) {
			ext = fromName
		}
	}

	name := uuid.NewString() + ext
	if c.prefix != "" {
		name = c.prefix + "/" + name
	}

	limited := &limitedReader{r: body, remaining: c.maxBytes}
	stored, err := c.objects.insert(ctx, c.bucketName, &storage.Object{
		Name:        name,
		ContentType: ct,
		Metadata:    map[string]string{"original-filename": path.Base(filename)},
	}, limited)
	if err != nil {
		if limited.exceeded {
			return Object{}, fmt.Errorf("image exceeds %d bytes", c.maxBytes)
		}
		return Object{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	if stored != nil && stored.Name != "" {
		name = stored.Name
	}

	return Object{
		URL: fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucketName, name),
		ID:  name,
	}, nil
}

// Delete removes an object. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, objectID string) error {
	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		return nil
	}
	if err := c.objects.delete(ctx, c.bucketName, objectID); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("deleting %s: %w", objectID, err)
	}
	return nil
}

// Ping verifies the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.objects.bucket(ctx, c.bucketName); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", c.bucketName, err)
	}
	return nil
}

type apiStore struct {
	svc *storage.Service
}

func (a *apiStore) insert(ctx context.Context, bucket string, obj *storage.Object, body io.Reader) (*storage.Object, error) {
	return a.svc.Objects.Insert(bucket, obj).
		Media(body, googleapi.ContentType(obj.ContentType)).
		Context(ctx).
		Do()
}

func (a *apiStore) delete(ctx context.Context, bucket, name string) error {
	return a.svc.Objects.Delete(bucket, name).Context(ctx).Do()
}

func (a *apiStore) bucket(ctx context.Context, bucket string) error {
	_, err := a.svc.Buckets.Get(bucket).Context(ctx).Do()
	return err
}

// limitedReader fails the read once more than remaining bytes are consumed.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, errors.New("upload size limit exceeded")
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, errors.New("upload size limit exceeded")
	}
	return n, err
}

func normalizeContentType(value string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return strings.ToLower(mediaType)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
