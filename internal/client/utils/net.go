// Package utils holds small helpers for the CLI.
package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Downloader fetches objects from presigned S3 URLs. The URL already carries
// its signature, so no API headers are sent.
type Downloader struct {
	http *resty.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{http: resty.New().SetTimeout(timeout)}
}

func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download failed: %s", resp.Status())
	}
	return resp.Body(), nil
}
