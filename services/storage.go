package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rs/zerolog/log"
)

// ErrStorageDisabled is returned when no invoice bucket is configured.
var ErrStorageDisabled = errors.New("storage not configured")

var invoiceExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// InvoiceFile is one uploaded invoice document.
type InvoiceFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredFile is where an uploaded file ended up. Key doubles as the
// invoice public id.
type StoredFile struct {
	URL string
	Key string
}

// ObjectPutter is the part of the S3 client the storage needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type StorageConfig struct {
	Bucket string
	Region string
	// PublicBaseURL overrides the virtual-hosted S3 URL, e.g. a CDN domain.
	PublicBaseURL string
}

// InvoiceStorage writes invoice files to S3. With no bucket configured it is
// disabled and every upload fails.
type InvoiceStorage struct {
	client  ObjectPutter
	cfg     StorageConfig
	enabled bool
}

var _ InvoiceFileStore = (*InvoiceStorage)(nil)

// NewInvoiceStorage loads AWS credentials from the default chain.
func NewInvoiceStorage(ctx context.Context, cfg StorageConfig) (*InvoiceStorage, error) {
	if cfg.Bucket == "" {
		log.Warn().Msg("INVOICE_BUCKET not set, invoice uploads are disabled")
		return &InvoiceStorage{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewInvoiceStorageWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

func NewInvoiceStorageWithClient(client ObjectPutter, cfg StorageConfig) *InvoiceStorage {
	return &InvoiceStorage{client: client, cfg: cfg, enabled: cfg.Bucket != ""}
}

// UploadInvoice stores file under invoices/<owner>/ with a random name.
func (s *InvoiceStorage) UploadInvoice(ctx context.Context, owner string, file InvoiceFile) (StoredFile, error) {
	if !s.enabled {
		return StoredFile{}, errs.NewInternalErrorWithCause("Invoice storage is not available", ErrStorageDisabled)
	}
	if file.Body == nil {
		return StoredFile{}, errs.NewMissingRequiredFieldError("invoice", "Invoice file is required")
	}
	ext := strings.ToLower(path.Ext(file.Name))
	if !invoiceExtensions[ext] {
		return StoredFile{}, errs.NewInvalidFieldError("invoice", "Invoice must be a PDF, PNG or JPEG file")
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	key := fmt.Sprintf("invoices/%s/%s%s", owner, uuid.NewString(), ext)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        file.Body,
		ContentType: aws.String(contentType),
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return StoredFile{}, errs.NewInternalErrorWithCause("Failed to store invoice", err)
	}
	return StoredFile{URL: s.publicURL(key), Key: key}, nil
}

func (s *InvoiceStorage) publicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
