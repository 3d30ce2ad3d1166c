package data

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/logger"
)

// Public location of the Tox21 CSV on the DeepChem dataset bucket.
const (
	Tox21Bucket = "deepchemdata"
	Tox21Key    = "datasets/tox21.csv.gz"
	Tox21Region = "us-west-1"
)

// FetchOptions locates the dataset object. Empty fields fall back to the
// public Tox21 location.
type FetchOptions struct {
	Region    string `yaml:"region" json:"region"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Key       string `yaml:"key" json:"key"`
	Endpoint  string `yaml:"endpoint" json:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
	Force     bool   `yaml:"-" json:"-"`
}

// Fetcher downloads the dataset from S3 with anonymous credentials.
type Fetcher struct {
	client *s3.Client
	opts   FetchOptions
	log    logger.Logger
}

// NewFetcher builds an S3 client for opts.
func NewFetcher(ctx context.Context, opts FetchOptions, log logger.Logger) (*Fetcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Region == "" {
		opts.Region = Tox21Region
	}
	if opts.Bucket == "" {
		opts.Bucket = Tox21Bucket
	}
	if opts.Key == "" {
		opts.Key = Tox21Key
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "data: aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.PathStyle {
			o.UsePathStyle = true
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &Fetcher{client: client, opts: opts, log: log}, nil
}

// Download writes the object to dest and returns dest. An existing file is
// reused unless Force is set.
func (f *Fetcher) Download(ctx context.Context, dest string) (string, error) {
	if !f.opts.Force {
		if st, err := os.Stat(dest); err == nil && st.Size() > 0 {
			f.log.Info("dataset already present", "path", dest)
			return dest, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", errors.Wrap(err, "data: create dataset dir")
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.opts.Bucket),
		Key:    aws.String(f.opts.Key),
	})
	if err != nil {
		return "", errors.Wrapf(err, "data: get s3://%s/%s", f.opts.Bucket, f.opts.Key)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return "", errors.Wrap(err, "data: temp file")
	}
	n, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, "data: download")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, "data: rename download")
	}
	f.log.Info("downloaded dataset", "bucket", f.opts.Bucket, "key", f.opts.Key, "bytes", n, "path", dest)
	return dest, nil
}
