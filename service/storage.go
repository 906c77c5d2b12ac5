package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

var _ core.StorageService = (*StorageServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.STORAGE_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewStorageService()
		},
	})
}

type StorageServiceDefault struct {
	ctx    core.Context
	db     *gorm.DB
	logger *core.Logger
	client *s3.Client
	bucket string
}

func NewStorageService() (*StorageServiceDefault, []core.ContextBuilderOption, error) {
	storage := &StorageServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			storage.ctx = ctx
			storage.db = ctx.DB()
			storage.logger = ctx.Logger().Named("storage")
			storage.bucket = ctx.Config().Config().Core.Storage.S3.Bucket

			client, err := storage.s3Client(ctx)
			if err != nil {
				return err
			}
			storage.client = client

			return nil
		}),
	)

	return storage, opts, nil
}

func (s *StorageServiceDefault) ID() string {
	return core.STORAGE_SERVICE
}

func (s *StorageServiceDefault) s3Client(ctx context.Context) (*s3.Client, error) {
	s3Cfg := s.ctx.Config().Config().Core.Storage.S3

	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:           s3Cfg.Endpoint,
				SigningRegion: s3Cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})
	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(s3Cfg.Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3Cfg.AccessKey,
			s3Cfg.SecretKey,
			"",
		)),
		awsConfig.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s3Cfg.PathStyle
	}), nil
}

func (s *StorageServiceDefault) UploadObject(ctx context.Context, key string, data io.ReadSeeker, size uint64) (*core.ObjectInfo, error) {
	mime, err := s.detectMimeType(data)
	if err != nil {
		return nil, err
	}

	if _, err = data.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if size > core.S3_MULTIPART_MIN_PART_SIZE {
		if err = s.multipartUpload(ctx, data, key, size); err != nil {
			return nil, err
		}
	} else {
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        data,
			ContentType: aws.String(mime.String()),
		})
		if err != nil {
			return nil, err
		}
	}

	return &core.ObjectInfo{Key: key, Size: size, MimeType: mime.String()}, nil
}

func (s *StorageServiceDefault) UploadFile(ctx context.Context, key string, path string) (*core.ObjectInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return s.UploadObject(ctx, key, f, uint64(info.Size()))
}

func (s *StorageServiceDefault) detectMimeType(reader io.Reader) (*mimetype.MIME, error) {
	header := make([]byte, 512)
	n, err := reader.Read(header)
	if err != nil && err != io.EOF {
		return nil, err
	}

	return mimetype.Detect(header[:n]), nil
}

// multipartPlan sizes the parts for an object. Parts default to the
// minimum part size; when that would exceed the part cap, the part size
// is rounded up so the final part still covers the object's tail bytes.
func multipartPlan(size uint64) (uint64, int) {
	partSize := core.S3_MULTIPART_MIN_PART_SIZE
	if totalParts := int(math.Ceil(float64(size) / float64(partSize))); totalParts <= core.S3_MULTIPART_MAX_PARTS {
		return partSize, totalParts
	}

	partSize = (size + core.S3_MULTIPART_MAX_PARTS - 1) / core.S3_MULTIPART_MAX_PARTS

	return partSize, int(math.Ceil(float64(size) / float64(partSize)))
}

// multipartUpload pushes data to S3 in parts, resuming a tracked upload
// when one exists for the same key.
func (s *StorageServiceDefault) multipartUpload(ctx context.Context, data io.Reader, key string, size uint64) error {
	var uploadId string
	var lastPartNumber int32

	partSize, totalParts := multipartPlan(size)

	var completedParts []s3types.CompletedPart

	var s3Upload models.S3Upload

	s3Upload.Bucket = s.bucket
	s3Upload.Key = key

	startTime := time.Now()

	if err := db.RetryOnLock(s.db, func(db *gorm.DB) *gorm.DB {
		return db.Model(&s3Upload).Where(&s3Upload).First(&s3Upload)
	}); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	} else {
		uploadId = s3Upload.UploadID
	}

	if len(uploadId) > 0 {
		parts, err := s.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: aws.String(uploadId),
		})

		if err != nil {
			uploadId = ""
		} else {
			for _, part := range parts.Parts {
				if uint64(*part.Size) == partSize {
					if *part.PartNumber > lastPartNumber {
						lastPartNumber = *part.PartNumber
						completedParts = append(completedParts, s3types.CompletedPart{
							ETag:       part.ETag,
							PartNumber: part.PartNumber,
						})
					}
				}
			}
		}
	}

	if uploadId == "" {
		mu, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}

		uploadId = *mu.UploadId

		s3Upload.UploadID = uploadId
		if err = db.RetryOnLock(s.db, func(db *gorm.DB) *gorm.DB {
			return db.Create(&s3Upload)
		}); err != nil {
			return err
		}
	}

	var consumed uint64
	for partNum := 1; partNum <= totalParts; partNum++ {
		chunk := partSize
		if remaining := size - consumed; remaining < chunk {
			chunk = remaining
		}

		// Short reads without EOF are legal for io.Reader; a part must
		// still carry exactly its share of the object.
		partData := make([]byte, chunk)
		if _, err := io.ReadFull(data, partData); err != nil {
			return err
		}
		consumed += chunk

		if partNum <= int(lastPartNumber) {
			continue
		}

		uploadPartOutput, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			PartNumber: aws.Int32(int32(partNum)),
			UploadId:   aws.String(uploadId),
			Body:       bytes.NewReader(partData),
		})
		if err != nil {
			_, abortErr := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(s.bucket),
				Key:      aws.String(key),
				UploadId: aws.String(uploadId),
			})
			if abortErr != nil {
				s.logger.Error("error aborting multipart upload", zap.Error(abortErr))
			}
			return err
		}

		completedParts = append(completedParts, s3types.CompletedPart{
			ETag:       uploadPartOutput.ETag,
			PartNumber: aws.Int32(int32(partNum)),
		})
	}

	sort.Slice(completedParts, func(i, j int) bool {
		return *completedParts[i].PartNumber < *completedParts[j].PartNumber
	})

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadId),
		MultipartUpload: &s3types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		return err
	}

	if err = db.RetryOnLock(s.db, func(db *gorm.DB) *gorm.DB {
		return db.Delete(&s3Upload)
	}); err != nil {
		return err
	}

	s.logger.Debug("S3 multipart upload complete",
		zap.String("key", key),
		zap.Uint64("size", size),
		zap.Duration("duration", time.Since(startTime)))

	return nil
}

func (s *StorageServiceDefault) DownloadObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}

	return out.Body, nil
}

func (s *StorageServiceDefault) DownloadToFile(ctx context.Context, key string, path string) error {
	body, err := s.DownloadObject(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err = io.Copy(f, body); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func (s *StorageServiceDefault) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	return err
}

func (s *StorageServiceDefault) DeletePrefix(ctx context.Context, prefix string) error {
	objects, err := s.ListObjects(ctx, prefix)
	if err != nil {
		return err
	}

	for _, object := range objects {
		if err = s.DeleteObject(ctx, object.Key); err != nil {
			return fmt.Errorf("delete %s: %w", object.Key, err)
		}
	}

	return nil
}

func (s *StorageServiceDefault) ListObjects(ctx context.Context, prefix string) ([]core.ObjectInfo, error) {
	var objects []core.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, object := range page.Contents {
			objects = append(objects, core.ObjectInfo{
				Key:  aws.ToString(object.Key),
				Size: uint64(aws.ToInt64(object.Size)),
			})
		}
	}

	return objects, nil
}

func (s *StorageServiceDefault) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
