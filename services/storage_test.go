package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rpupo63/client-project-portal/errs"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	body   string
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestInvoiceStorageUpload(t *testing.T) {
	putter := &fakePutter{}
	storage := NewInvoiceStorageWithClient(putter, StorageConfig{Bucket: "portal-invoices", Region: "us-east-1"})

	stored, err := storage.UploadInvoice(context.Background(), "project-1", InvoiceFile{
		Name: "March.PDF",
		Size: 4,
		Body: strings.NewReader("%PDF"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stored.Key, "invoices/project-1/") || !strings.HasSuffix(stored.Key, ".pdf") {
		t.Errorf("unexpected key %q", stored.Key)
	}
	if stored.URL != "https://portal-invoices.s3.us-east-1.amazonaws.com/"+stored.Key {
		t.Errorf("unexpected url %q", stored.URL)
	}
	in := putter.inputs[0]
	if aws.ToString(in.Bucket) != "portal-invoices" || aws.ToString(in.ContentType) != "application/pdf" {
		t.Errorf("unexpected put input: bucket=%q type=%q", aws.ToString(in.Bucket), aws.ToString(in.ContentType))
	}
	if putter.body != "%PDF" {
		t.Errorf("body = %q", putter.body)
	}
}

func TestInvoiceStorageRejectsUnknownFiles(t *testing.T) {
	storage := NewInvoiceStorageWithClient(&fakePutter{}, StorageConfig{Bucket: "b"})
	_, err := storage.UploadInvoice(context.Background(), "p", InvoiceFile{Name: "run.exe", Body: strings.NewReader("x")})
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvoiceStorageDisabled(t *testing.T) {
	storage, err := NewInvoiceStorage(context.Background(), StorageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = storage.UploadInvoice(context.Background(), "p", InvoiceFile{Name: "a.pdf", Body: strings.NewReader("x")})
	if !errors.Is(err, ErrStorageDisabled) || errs.StatusOf(err) != 500 {
		t.Fatalf("expected disabled storage error, got %v", err)
	}
}

func TestInvoiceStorageWrapsClientErrors(t *testing.T) {
	storage := NewInvoiceStorageWithClient(&fakePutter{err: errors.New("access denied")}, StorageConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"})
	_, err := storage.UploadInvoice(context.Background(), "p", InvoiceFile{Name: "a.png", Body: strings.NewReader("x")})
	if !errs.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
