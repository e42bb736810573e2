package export

// Note: use requires a ~/.aws/credentials file
// https://docs.aws.amazon.com/sdk-for-go/v1/developer-guide/configuring-sdk.html#specifying-credentials

import (
	"bytes"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3ArtifactStore persists exported artifacts to an S3 bucket.
type S3ArtifactStore struct {
	svc    *s3.S3
	bucket string
}

func newS3(path string) ArtifactStore {
	region, bucket, ok := strings.Cut(path, ":")
	if !ok {
		log.Fatalf(`S3 path %q does not have expected format "<region>:<bucket>".`, path)
	}
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))
	return &S3ArtifactStore{svc: s3.New(sess), bucket: bucket}
}

func (s *S3ArtifactStore) Write(k string, a Artifact) error {
	obj := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(a.Content),
		ContentType: aws.String(a.ContentType),
	}
	_, err := s.svc.PutObject(obj)
	return err
}

func (s *S3ArtifactStore) Close() error { return nil }

func init() {
	register("s3", newS3)
}
