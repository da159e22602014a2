package photo

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"hozur_backend/internals/configs"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore keeps photos in an Aliyun OSS bucket under Prefix.
type OSSStore struct {
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	Prefix     string
	PublicBase string
}

func NewOSSStoreFromEnv() (*OSSStore, error) {
	endpoint := normalizeEndpoint(configs.GetEnv("ALI_OSS_ENDPOINT"))
	ak := configs.GetEnv("ALI_OSS_ACCESS_KEY")
	sk := configs.GetEnv("ALI_OSS_SECRET_KEY")
	sts := configs.GetEnv("ALI_OSS_SECURITY_TOKEN")
	bucketName := configs.GetEnv("ALI_OSS_BUCKET")
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	var opts []oss.ClientOption
	if sts != "" {
		opts = append(opts, oss.SecurityToken(sts))
	}
	client, err := oss.New(endpoint, ak, sk, opts...)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 {
			log.Printf("[OSS] warn: skip location check (bucket=%s): %s", bucketName, se.Code)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		log.Printf("[OSS] bucket %s location: %s", bucketName, loc)
	}

	return &OSSStore{
		Bucket:     bkt,
		Endpoint:   endpoint,
		BucketName: bucketName,
		Prefix:     strings.Trim(configs.GetEnv("ALI_OSS_PHOTO_PREFIX", "students"), "/"),
		PublicBase: strings.TrimRight(configs.GetEnv("ALI_OSS_PUBLIC_BASE"), "/"),
	}, nil
}

func normalizeEndpoint(ep string) string {
	ep = strings.TrimSpace(ep)
	if ep == "" || strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	return "https://" + ep
}

func (s *OSSStore) objectKey(key string) string {
	if s.Prefix == "" {
		return key
	}
	return s.Prefix + "/" + key
}

func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.Bucket.PutObject(s.objectKey(key), bytes.NewReader(data),
		oss.ContentType(contentType),
		oss.CacheControl("public, max-age=31536000, immutable"),
		oss.WithContext(ctx),
	)
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	return s.Bucket.DeleteObject(s.objectKey(key), oss.WithContext(ctx))
}

func (s *OSSStore) List(ctx context.Context) ([]Object, error) {
	prefix := ""
	if s.Prefix != "" {
		prefix = s.Prefix + "/"
	}
	var out []Object
	marker := oss.Marker("")
	for {
		lor, err := s.Bucket.ListObjects(oss.Prefix(prefix), marker, oss.MaxKeys(1000), oss.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, obj := range lor.Objects {
			key := strings.TrimPrefix(obj.Key, prefix)
			if key == "" || strings.Contains(key, "/") {
				continue
			}
			out = append(out, Object{Key: key, ModTime: obj.LastModified})
		}
		if !lor.IsTruncated {
			return out, nil
		}
		marker = oss.Marker(lor.NextMarker)
	}
}

func (s *OSSStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	if s.PublicBase != "" {
		return s.PublicBase + "/" + s.objectKey(key)
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.BucketName, end, s.objectKey(key))
}
