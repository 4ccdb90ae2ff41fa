package oss

import (
	"bytes"
	"fmt"
	"path"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/listing_sub_server/config"
)

// Client 提醒扫描报告归档到对象存储
type Client struct {
	bucket  *oss.Bucket
	prefix  string
	linkTTL time.Duration
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.BucketName, err)
	}

	prefix := cfg.ReportPrefix
	if prefix == "" {
		prefix = "reminder-sweeps"
	}
	hours := cfg.ReportURLHours
	if hours <= 0 {
		hours = 7 * 24
	}

	return &Client{
		bucket:  bucket,
		prefix:  prefix,
		linkTTL: time.Duration(hours) * time.Hour,
	}, nil
}

// ReportKey 报告按 UTC 日期分目录
func (c *Client) ReportKey(runID string, startedAt time.Time) string {
	return path.Join(c.prefix, startedAt.UTC().Format("2006-01-02"), runID+".json")
}

// UploadSweepReport 上传扫描报告，返回有时效的签名链接
func (c *Client) UploadSweepReport(runID string, startedAt time.Time, data []byte) (string, error) {
	key := c.ReportKey(runID, startedAt)

	err := c.bucket.PutObject(key, bytes.NewReader(data),
		oss.ContentType("application/json"),
		oss.Meta("run-id", runID),
	)
	if err != nil {
		return "", fmt.Errorf("upload sweep report %s: %w", runID, err)
	}

	return c.signedLink(key)
}

func (c *Client) signedLink(key string) (string, error) {
	link, err := c.bucket.SignURL(key, oss.HTTPGet, int64(c.linkTTL/time.Second))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return link, nil
}
