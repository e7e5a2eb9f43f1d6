package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const defaultCacheControl = "public, max-age=31536000, immutable"

// Objects writes public media into a single Cloud Storage bucket.
type Objects struct {
	client *gcs.Client
	bucket string
}

// NewObjects constructs an Objects writer for bucket.
func NewObjects(client *gcs.Client, bucket string) (*Objects, error) {
	if client == nil {
		return nil, errors.New("storage objects: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	return &Objects{client: client, bucket: bucket}, nil
}

// Bucket returns the configured bucket name.
func (o *Objects) Bucket() string {
	if o == nil {
		return ""
	}
	return o.bucket
}

// Put uploads data to object. Media keys are content-addressed by upload id so they are cached
// as immutable.
func (o *Objects) Put(ctx context.Context, object, contentType string, data []byte) error {
	if o == nil || o.client == nil {
		return errors.New("storage objects: client is not initialised")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return errInvalidObject
	}
	w := o.client.Bucket(o.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = defaultCacheControl
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage objects: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage objects: close %s: %w", object, err)
	}
	return nil
}

// Ping checks the bucket is reachable.
func (o *Objects) Ping(ctx context.Context) error {
	if o == nil || o.client == nil {
		return errors.New("storage objects: client is not initialised")
	}
	_, err := o.client.Bucket(o.bucket).Attrs(ctx)
	return err
}
