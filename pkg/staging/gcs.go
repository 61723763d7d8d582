package staging

import (
	"context"
	stderrors "errors"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// GCSStore keeps objects in a Cloud Storage bucket under a prefix.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStore creates a store for bucket. Without options the default
// application credentials are used.
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "create gcs client")
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

// Put writes an object.
func (g *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	w := g.bucket.Object(joinKey(g.prefix, key)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "upload "+key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "upload "+key)
	}
	return nil
}

// Get reads an object.
func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	r, err := g.bucket.Object(joinKey(g.prefix, key)).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Wrap(ErrObjectNotFound, errors.ErrorTypeNotFound, key)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "download "+key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "download "+key)
	}
	return data, nil
}

// List iterates the objects under prefix.
func (g *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: listPrefix(g.prefix, prefix)})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "list objects")
		}
		keys = append(keys, trimKey(g.prefix, attrs.Name))
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes an object.
func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := g.bucket.Object(joinKey(g.prefix, key)).Delete(ctx)
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, errors.ErrorTypeIO, "delete "+key)
	}
	return nil
}

// Close releases the client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
