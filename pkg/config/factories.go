package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/bucketfs/pkg/metadata"
	"github.com/marmos91/bucketfs/pkg/objectstore"
	objectstoreS3 "github.com/marmos91/bucketfs/pkg/objectstore/s3"
)

// CreateObjectStore creates an object store client based on configuration.
//
// The Type field selects the implementation; the matching type-specific
// options map is decoded into the implementation's configuration struct and
// passed to its constructor.
//
// Supported types:
//   - "s3": Amazon S3 or compatible storage (pkg/objectstore/s3)
func CreateObjectStore(ctx context.Context, cfg *StoreConfig) (objectstore.Client, error) {
	switch cfg.Type {
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown object store type: %q", cfg.Type)
	}
}

// createS3ObjectStore creates an S3-backed object store client.
func createS3ObjectStore(ctx context.Context, options map[string]any) (objectstore.Client, error) {
	// Configuration struct for the S3 object store options map
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 object store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 object store: region is required")
	}

	store, err := objectstoreS3.New(ctx, objectstoreS3.Config{
		Region:          storeCfg.Region,
		Bucket:          storeCfg.Bucket,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 object store: %w", err)
	}

	return store, nil
}

// CreateExport builds one export from its configuration: object store client
// first, then the export itself (which probes the bucket).
func CreateExport(ctx context.Context, cfg *ExportConfig, listingMetrics metadata.ListingMetrics) (*metadata.Export, error) {
	store, err := CreateObjectStore(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", cfg.Name, err)
	}

	export, err := metadata.NewExport(ctx, metadata.Options{
		Name:           cfg.Name,
		Store:          store,
		MaxRetries:     cfg.MaxRetries,
		RetryInterval:  cfg.RetryInterval,
		RequestTimeout: cfg.RequestTimeout,
		MaxKeys:        cfg.MaxKeys,
		Metrics:        listingMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", cfg.Name, err)
	}

	return export, nil
}
