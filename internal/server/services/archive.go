package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/aliasvault/internal/server/config"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Archiver keeps a copy of vault revisions that retention is about to delete.
type Archiver interface {
	Archive(ctx context.Context, v *models.Vault) error
}

// archivedVault is the JSON document written per pruned revision. The blob
// stays encrypted; the server never sees plaintext.
type archivedVault struct {
	UserID             string    `json:"userId"`
	RevisionNumber     int64     `json:"revisionNumber"`
	Version            string    `json:"version"`
	Blob               string    `json:"blob"`
	Salt               string    `json:"salt"`
	Verifier           string    `json:"verifier"`
	EncryptionType     string    `json:"encryptionType"`
	EncryptionSettings string    `json:"encryptionSettings"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// S3Archiver writes pruned revisions to an S3-compatible bucket.
type S3Archiver struct {
	config *sc.Config

	once    sync.Once
	client  *s3.Client
	initErr error
}

func NewS3Archiver(config *sc.Config) *S3Archiver {
	return &S3Archiver{config: config}
}

// ArchiveKey is the object key of an archived revision.
func ArchiveKey(userID string, revision int64) string {
	return fmt.Sprintf("vaults/%s/%010d.json", userID, revision)
}

func (a *S3Archiver) getClient(ctx context.Context) (*s3.Client, error) {
	a.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(ctx,
			config.WithRegion(a.config.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				a.config.S3RootUser,
				a.config.S3RootPassword,
				"",
			)))
		if err != nil {
			a.initErr = err
			return
		}

		a.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
			o.UsePathStyle = true
		})
	})
	return a.client, a.initErr
}

func (a *S3Archiver) Archive(ctx context.Context, v *models.Vault) error {
	client, err := a.getClient(ctx)
	if err != nil {
		return fmt.Errorf("s3 config: %w", err)
	}

	body, err := json.Marshal(archivedVault{
		UserID:             v.UserID,
		RevisionNumber:     v.RevisionNumber,
		Version:            v.Version,
		Blob:               v.Blob,
		Salt:               v.Salt,
		Verifier:           v.Verifier,
		EncryptionType:     v.EncryptionType,
		EncryptionSettings: v.EncryptionSettings,
		UpdatedAt:          v.UpdatedAt,
	})
	if err != nil {
		return err
	}

	bucket := a.config.S3Bucket
	key := ArchiveKey(v.UserID, v.RevisionNumber)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a short-lived download link for an archived revision.
func (a *S3Archiver) PresignedURL(ctx context.Context, userID string, revision int64) (string, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	bucket := a.config.S3Bucket
	key := ArchiveKey(userID, revision)

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
