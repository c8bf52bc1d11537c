package driver

import (
	"context"
	"fmt"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage/cloudinary"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage/fs"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage/s3"
)

// New selects the object store implementation named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "s3", "b2", "minio":
		return s3.New(ctx, cfg, logg)
	case "cloudinary":
		return cloudinary.New(ctx, cfg, logg)
	case "fs":
		return fs.New(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
