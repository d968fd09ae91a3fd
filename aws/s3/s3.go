// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 reads objects from Amazon S3, either every object under a prefix
// or a single object named by an s3://bucket/key reference.
package s3

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// Scheme is the URL scheme of S3 references.
const Scheme = "s3"

// Option is a functional option type for Client.
type Option func(c *Client)

// OptRegion sets the AWS region used when the Client creates its own session.
func OptRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// OptEndpoint sets a custom endpoint (e.g. an S3 compatible object store).
func OptEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// OptAPI sets the S3 API implementation directly; no session is created.
func OptAPI(api s3iface.S3API) Option {
	return func(c *Client) {
		c.api = api
	}
}

// Client wraps the S3 API for fetching dataset files.
type Client struct {
	region   string
	endpoint string
	api      s3iface.S3API
}

// NewClient returns a Client with the options applied.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.api != nil {
		return c, nil
	}
	cfg := &aws.Config{Region: aws.String(c.region)}
	if c.endpoint != "" {
		cfg.Endpoint = aws.String(c.endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	c.api = s3.New(sess)
	return c, nil
}

// ParseRef splits an s3://bucket/key reference.
func ParseRef(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing '%s'", ref)
	}
	if u.Scheme != Scheme {
		return "", "", errors.Errorf("'%s' is not an s3 reference", ref)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("'%s' must be of the form s3://bucket/key", ref)
	}
	return u.Host, key, nil
}

// Object is a dlk.NamedReadCloser over the body of one S3 object.
type Object struct {
	bucket string
	key    string
	body   io.ReadCloser

	// ETag and Size are as reported by S3.
	ETag string
	Size int64
}

func (o *Object) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

// Close closes the object body.
func (o *Object) Close() error {
	return o.body.Close()
}

// Name returns the object key.
func (o *Object) Name() string {
	return o.key
}

// Meta returns the bucket, key, etag and size of the object.
func (o *Object) Meta() map[string]interface{} {
	return map[string]interface{}{
		"bucket": o.bucket,
		"key":    o.key,
		"etag":   o.ETag,
		"size":   o.Size,
	}
}

// Get fetches a single object.
func (c *Client) Get(ctx context.Context, bucket, key string) (*Object, error) {
	result, err := c.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", bucket, key)
	}
	return &Object{
		bucket: bucket,
		key:    key,
		body:   result.Body,
		ETag:   aws.StringValue(result.ETag),
		Size:   aws.Int64Value(result.ContentLength),
	}, nil
}

// GetRef fetches the object named by an s3://bucket/key reference.
func (c *Client) GetRef(ctx context.Context, ref string) (*Object, error) {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, bucket, key)
}

// List returns the keys of every object in bucket matching prefix, in the
// order S3 reports them (lexicographic).
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := c.api.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{Bucket: aws.String(bucket), Prefix: aws.String(prefix)},
		func(page *s3.ListObjectsOutput, last bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, aws.StringValue(obj.Key))
			}
			return true
		})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	return keys, nil
}

// RawSource is a dlk.RawSource which returns every object under a prefix in
// key order.
type RawSource struct {
	ctx    context.Context
	client *Client
	bucket string
	keys   []string
	objIdx *uint64
}

// NewRawSource lists the objects in bucket matching prefix.
func NewRawSource(ctx context.Context, client *Client, bucket, prefix string) (*RawSource, error) {
	keys, err := client.List(ctx, bucket, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "getting new source")
	}
	idx := uint64(0)
	return &RawSource{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		keys:   keys,
		objIdx: &idx,
	}, nil
}

// Keys returns the object keys the source will read.
func (rs *RawSource) Keys() []string {
	return append([]string(nil), rs.keys...)
}

// NextReader implements dlk.RawSource.
func (rs *RawSource) NextReader() (dlk.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.keys) {
		return nil, io.EOF
	}
	obj, err := rs.client.Get(rs.ctx, rs.bucket, rs.keys[idx])
	if err != nil {
		return nil, err
	}
	return obj, nil
}
