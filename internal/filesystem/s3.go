// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filesystem

import (
	"context"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// S3Options configure the S3 backend.
type S3Options struct {
	Region string
	// Endpoint points the client at an S3 compatible service. Path style
	// addressing is used when set.
	Endpoint string
	// Credentials override the default AWS credential chain.
	Credentials *credentials.Credentials
}

var errAborted = errors.New("upload aborted")

// S3 stores artifacts as objects. The URI host is the bucket and the path
// is the key: s3://bucket/path/to/artifact.json.
type S3 struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
}

// NewS3 creates an S3 backend. No request is made until the first call.
func NewS3(opts S3Options) (*S3, error) {
	cfg := aws.NewConfig().WithRegion(opts.Region)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	if opts.Credentials != nil {
		cfg = cfg.WithCredentials(opts.Credentials)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create AWS session")
	}

	client := s3.New(sess)
	return &S3{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

func bucketKey(u *url.URL) (string, string, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("s3 URI %q needs a bucket and a key", u.String())
	}
	return u.Host, key, nil
}

// Open implements FileSystem.
func (s *S3) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket, key, err := bucketKey(u)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
				return nil, errors.WithStack(&fs.PathError{Op: "open", Path: u.String(), Err: fs.ErrNotExist})
			}
		}
		return nil, errors.Wrapf(err, "cannot get %s", u.String())
	}
	return out.Body, nil
}

// Create implements FileSystem. The object is uploaded while it is written.
func (s *S3) Create(ctx context.Context, u *url.URL) (io.WriteCloser, error) {
	bucket, key, err := bucketKey(u)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			logger.WithFields(logrus.Fields{
				"uri":   u.String(),
				"error": err.Error(),
			}).Debug("S3 upload failed.")
			err = errors.Wrapf(err, "cannot put %s", u.String())
		}
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// MkdirAll implements FileSystem. Buckets have no directories.
func (*S3) MkdirAll(context.Context, *url.URL) error {
	return nil
}

type s3Writer struct {
	pw     *io.PipeWriter
	done   chan error
	closed bool
	err    error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Abort fails the upload with cause so no object is created.
func (w *s3Writer) Abort(cause error) error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if cause == nil {
		cause = errAborted
	}
	_ = w.pw.CloseWithError(cause)
	w.err = <-w.done
	return w.err
}

func (w *s3Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	_ = w.pw.Close()
	w.err = <-w.done
	return w.err
}
