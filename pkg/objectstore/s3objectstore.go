package objectstore

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

var _ ObjectStore = (*S3ObjectStore)(nil)

type S3ObjectStore struct {
	Client *s3.S3
}

// NewS3ObjectStore builds a store from the ambient AWS configuration
// (environment, shared config and credentials files).
func NewS3ObjectStore(region string) (*S3ObjectStore, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: nonEmpty(region)},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return &S3ObjectStore{Client: s3.New(sess)}, nil
}

func (store *S3ObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if _, err := store.Client.PutObject(&s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   data,
	}); err != nil {
		return fmt.Errorf("putting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func (store *S3ObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	rsp, err := store.Client.GetObject(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf("getting object `%s/%s`: %w", bucket, key, err)
	}
	return rsp.Body, nil
}

func (store *S3ObjectStore) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	var keys []string
	if err := store.Client.ListObjectsPages(
		&s3.ListObjectsInput{Bucket: &bucket, Prefix: &prefix},
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				keys = append(keys, aws.StringValue(object.Key))
			}
			return true
		},
	); err != nil {
		return keys, fmt.Errorf(
			"listing objects in `%s` with prefix `%s`: %w",
			bucket,
			prefix,
			err,
		)
	}
	return keys, nil
}

// DeleteObject removes `key`. S3 doesn't report missing keys on delete, so
// neither does this.
func (store *S3ObjectStore) DeleteObject(bucket, key string) error {
	if _, err := store.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		return fmt.Errorf("deleting object `%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err, ok := err.(awserr.Error); ok {
		return err.Code() == s3.ErrCodeNoSuchKey || err.Code() == "NotFound"
	}
	return false
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
