// Package staging distributes planned splits through object storage.
//
// The controlling process stages the encoded splits of a job under
// <jobID>/ together with a manifest; workers read the manifest and load the
// split they were assigned. Stores are selected by URL:
//
//	/var/lib/kvsplit or file:///var/lib/kvsplit   local directory
//	s3://bucket/prefix?region=eu-west-1         Amazon S3 (or compatible)
//	gs://bucket/prefix                          Google Cloud Storage
package staging

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"

	"google.golang.org/api/option"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// ErrObjectNotFound is returned by Get for missing objects.
var ErrObjectNotFound = errors.New(errors.ErrorTypeNotFound, "object not found")

// ObjectStore is the storage a Stager writes to. Keys use forward slashes.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

type openOptions struct {
	s3  S3Config
	gcs []option.ClientOption
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithS3Config sets the S3 settings used for s3:// URLs. Query parameters of
// the URL override them.
func WithS3Config(cfg S3Config) OpenOption {
	return func(o *openOptions) { o.s3 = cfg }
}

// WithGCSOptions sets client options used for gs:// URLs.
func WithGCSOptions(opts ...option.ClientOption) OpenOption {
	return func(o *openOptions) { o.gcs = append(o.gcs, opts...) }
}

// Open returns the store addressed by rawURL.
func Open(ctx context.Context, rawURL string, opts ...OpenOption) (ObjectStore, error) {
	o := openOptions{s3: DefaultS3Config()}
	for _, opt := range opts {
		opt(&o)
	}

	if rawURL == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "staging url is empty")
	}
	if !strings.Contains(rawURL, "://") {
		return NewLocalStore(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid staging url")
	}
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "file":
		return NewLocalStore(u.Path)
	case "s3":
		if u.Host == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "staging url %q has no bucket", rawURL)
		}
		cfg, err := s3ConfigFromQuery(o.s3, u.Query())
		if err != nil {
			return nil, err
		}
		return NewS3Store(ctx, u.Host, prefix, cfg)
	case "gs":
		if u.Host == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "staging url %q has no bucket", rawURL)
		}
		return NewGCSStore(ctx, u.Host, prefix, o.gcs...)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported staging scheme %q", u.Scheme)
	}
}

func s3ConfigFromQuery(cfg S3Config, q url.Values) (S3Config, error) {
	if v := q.Get("region"); v != "" {
		cfg.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if v := q.Get("path_style"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrap(err, errors.ErrorTypeConfig, "path_style")
		}
		cfg.UsePathStyle = b
	}
	return cfg, nil
}

// joinKey joins a store prefix and a key.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// listPrefix joins a store prefix and a listing prefix, keeping a trailing
// slash.
func listPrefix(prefix, p string) string {
	if prefix == "" {
		return p
	}
	return prefix + "/" + p
}

// trimKey strips prefix from a full object name.
func trimKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimPrefix(strings.TrimPrefix(name, prefix), "/")
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return errors.Newf(errors.ErrorTypeArgument, "invalid object key %q", key)
	}
	return nil
}
