package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/converge/converge/provider"
	"github.com/converge/converge/resource"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// storageBucketAdapter provisions storage buckets on S3. The bucket name is
// the physical id.
type storageBucketAdapter struct {
	p *Provider
}

func (a *storageBucketAdapter) Create(ctx context.Context, req *provider.CreateRequest) (cty.Value, error) {
	bucket := resource.StringAttr(req.Input, "bucket")
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if _, err := a.p.s3.CreateBucketRequest(input).Send(ctx); err != nil {
		return cty.NilVal, classify(req.Kind, req.Name, err)
	}
	return output(req.Input, map[string]cty.Value{
		"id": cty.StringVal(bucket),
	}), nil
}

func (a *storageBucketAdapter) Read(ctx context.Context, kind, id string) (cty.Value, error) {
	input := &s3.HeadBucketInput{Bucket: aws.String(id)}
	if _, err := a.p.s3.HeadBucketRequest(input).Send(ctx); err != nil {
		return cty.NilVal, classify(kind, id, err)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id":     cty.StringVal(id),
		"bucket": cty.StringVal(id),
	}), nil
}

func (a *storageBucketAdapter) Update(ctx context.Context, req *provider.UpdateRequest) (cty.Value, error) {
	return cty.NilVal, errors.Errorf("storage_bucket %s cannot be updated in place", req.Name)
}

// Delete removes the bucket. A bucket that still holds objects fails with a
// NotEmptyError unless the request sets Force, in which case the contained
// objects are deleted first.
func (a *storageBucketAdapter) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	if req.Force {
		if err := a.empty(ctx, req.ID); err != nil {
			return errors.Wrapf(err, "empty bucket %s", req.ID)
		}
	}
	input := &s3.DeleteBucketInput{Bucket: aws.String(req.ID)}
	_, err := a.p.s3.DeleteBucketRequest(input).Send(ctx)
	return classify(req.Kind, req.ID, err)
}

// empty deletes every object in the bucket, page by page.
func (a *storageBucketAdapter) empty(ctx context.Context, bucket string) error {
	for {
		list, err := a.p.s3.ListObjectsV2Request(&s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
		}).Send(ctx)
		if err != nil {
			return classify("storage_bucket", bucket, err)
		}
		if len(list.Contents) == 0 {
			return nil
		}
		objects := make([]s3.ObjectIdentifier, len(list.Contents))
		for i, obj := range list.Contents {
			objects[i] = s3.ObjectIdentifier{Key: obj.Key}
		}
		del := &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{Objects: objects},
		}
		if _, err := a.p.s3.DeleteObjectsRequest(del).Send(ctx); err != nil {
			return classify("storage_bucket", bucket, err)
		}
	}
}
