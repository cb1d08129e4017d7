package domain

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

// ReportStore keeps generated report files and hands out temporary download links
type ReportStore interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// ReportFileName names a report export generated at the given instant
func ReportFileName(report string, at time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", report, at.UTC().Format("20060102T150405Z"))
}

// ReportObjectPath is the tenant scoped storage path of a report export
func ReportObjectPath(tenantID int32, report string, at time.Time) string {
	return path.Join(fmt.Sprintf("tenant-%d", tenantID), report, ReportFileName(report, at))
}
