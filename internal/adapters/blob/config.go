package blob

import (
	"context"

	"timecapsule/internal/platform/config"
	perr "timecapsule/internal/platform/errors"
)

// Drivers accepted by Open
const (
	DriverS3   = "s3"
	DriverDisk = "disk"
)

// Open builds a Store from CAPSULE_STORAGE_DRIVER and its driver keys
// c is expected to carry the CAPSULE_ prefix
func Open(ctx context.Context, c config.Conf) (Store, error) {
	switch c.MayEnum("STORAGE_DRIVER", DriverDisk, DriverS3, DriverDisk) {
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    c.MayString("S3_BUCKET", ""),
			Region:    c.MayString("S3_REGION", "us-east-1"),
			Endpoint:  c.MayString("S3_ENDPOINT", ""),
			PublicURL: c.MayString("S3_PUBLIC_URL", ""),
		})
	case DriverDisk:
		return NewDisk(c.MayString("DISK_ROOT", "./var/media"), c.MayString("DISK_PUBLIC_URL", ""))
	}
	return nil, perr.BadInputf("blob: unknown storage driver")
}
