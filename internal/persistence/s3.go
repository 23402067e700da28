/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package persistence

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"aviary/internal/errors"
	"aviary/internal/model"
)

// objectAPI is the subset of *s3.Client the gateway uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Options configures the S3 gateway.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // optional; MinIO or another S3-compatible service
	Prefix    string
	PathStyle bool
}

// S3Gateway stores the two XML documents as objects.
type S3Gateway struct {
	client objectAPI
	bucket string
	prefix string
}

// OpenS3 builds a client from the default AWS credential chain.
func OpenS3(ctx context.Context, opts S3Options) (*S3Gateway, error) {
	if opts.Bucket == "" {
		return nil, errors.ConfigInvalid(nil).WithDetail("s3 backend requires a bucket")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.StorageFailure("s3", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.PathStyle {
			o.UsePathStyle = true
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	log.Info("S3 storage configured", "bucket", opts.Bucket, "prefix", opts.Prefix, "region", region)
	return newS3Gateway(client, opts.Bucket, opts.Prefix), nil
}

func newS3Gateway(client objectAPI, bucket, prefix string) *S3Gateway {
	return &S3Gateway{client: client, bucket: bucket, prefix: prefix}
}

// Name implements Gateway.
func (g *S3Gateway) Name() string { return "s3" }

func (g *S3Gateway) key(file string) string { return g.prefix + file }

// Load implements Gateway. A missing birds object means an empty table.
func (g *S3Gateway) Load(ctx context.Context) ([]*model.Bird, error) {
	birdsDoc, err := g.get(ctx, g.key(BirdsFile))
	if err != nil {
		return nil, errors.StorageFailure(g.Name(), err)
	}
	if birdsDoc == nil {
		log.Info("No saved table in bucket, starting empty", "bucket", g.bucket, "key", g.key(BirdsFile))
		return []*model.Bird{}, nil
	}
	sightingsDoc, err := g.get(ctx, g.key(SightingsFile))
	if err != nil {
		return nil, errors.StorageFailure(g.Name(), err)
	}

	birds, err := decodeXML(g.Name(), birdsDoc, sightingsDoc)
	if err != nil {
		return nil, errors.StorageFailure(g.Name(), err)
	}
	return birds, nil
}

// Save implements Gateway. The sightings object is written first so a
// reader never sees birds without their sightings document.
func (g *S3Gateway) Save(ctx context.Context, birds []*model.Bird) error {
	birdsDoc, sightingsDoc, err := encodeXML(birds)
	if err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	if err := g.put(ctx, g.key(SightingsFile), sightingsDoc); err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	if err := g.put(ctx, g.key(BirdsFile), birdsDoc); err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	return nil
}

// Ping implements Pinger.
func (g *S3Gateway) Ping(ctx context.Context) error {
	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(g.bucket)})
	return err
}

// Close implements Gateway.
func (g *S3Gateway) Close() error { return nil }

// get returns nil data without error when the object does not exist.
func (g *S3Gateway) get(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(g.bucket), Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (g *S3Gateway) put(ctx context.Context, key string, data []byte) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
