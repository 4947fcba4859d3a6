package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Bucket is a storage container as returned by the Storage API
type Bucket struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// BucketOptions are the settings applied when creating a bucket
type BucketOptions struct {
	Public bool
}

// Storage is the Storage API surface of a project
type Storage struct {
	client *Client
}

// Storage returns the Storage API of the project
func (c *Client) Storage() *Storage {
	return &Storage{client: c}
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// GetBucket fetches a bucket by name. A missing bucket matches ErrNotFound.
func (s *Storage) GetBucket(ctx context.Context, name string) (*Bucket, error) {
	var bucket Bucket
	if err := s.client.doJSON(ctx, http.MethodGet, "/storage/v1/bucket/"+url.PathEscape(name), nil, &bucket, nil); err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", name, err)
	}
	return &bucket, nil
}

// CreateBucket creates a bucket. An existing bucket matches ErrAlreadyExists.
func (s *Storage) CreateBucket(ctx context.Context, name string, opts BucketOptions) error {
	payload := map[string]any{
		"id":     name,
		"name":   name,
		"public": opts.Public,
	}
	if err := s.client.doJSON(ctx, http.MethodPost, "/storage/v1/bucket", payload, nil, nil); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

// Upload stores data at objectPath inside bucket.
// Without upsert an existing object matches ErrAlreadyExists.
func (s *Storage) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string, upsert bool) error {
	path := "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)

	req, err := s.client.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", fmt.Sprintf("%t", upsert))

	if err := s.client.do(req, nil); err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	return nil
}

// PublicURL returns the unauthenticated URL of an object in a public bucket
func (s *Storage) PublicURL(bucket, objectPath string) string {
	return s.client.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
}
