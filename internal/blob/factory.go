package blob

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/Boris-Bot69/fitness-ios/internal/config"
)

type Logger interface {
	Printf(format string, v ...any)
}

// OpenArchive resolves BLOB_MODE into the raw payload archive.
//
//   - local: nil archive, payloads stay in raw_workouts.payload;
//   - auto: S3 when fully configured and the client initializes, else local;
//   - s3: S3 or an error.
func OpenArchive(ctx context.Context, cfg appcfg.BlobConfig, logger Logger) (*Archive, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	switch mode {
	case appcfg.BlobModeLocal:
		logf(logger, "INFO archive: raw payloads kept in database (BLOB_MODE=local)")
		return nil, nil
	case appcfg.BlobModeAuto, appcfg.BlobModeS3:
	default:
		return nil, fmt.Errorf("unsupported blob mode: %s", mode)
	}
	required := mode == appcfg.BlobModeS3

	if !cfg.S3.IsConfigured() {
		if required {
			missing := cfg.S3.MissingRequired()
			logf(logger, "FATAL archive.s3: code=s3_config_incomplete missing=%v", missing)
			return nil, fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}
		level, code, msg := cfg.S3.Diagnostics()
		logf(logger, "%s archive.s3: code=%s %s", level, code, msg)
		logf(logger, "INFO archive: raw payloads kept in database (auto, S3 not configured)")
		return nil, nil
	}

	logf(logger, "INFO archive.s3: code=s3_ready %s", cfg.S3.DiagnosticsSummary())
	store, err := NewS3Store(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	if err != nil {
		if required {
			return nil, fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}
		logf(logger, "WARN archive.s3: init_failed=%q, raw payloads kept in database", err.Error())
		return nil, nil
	}

	logf(logger, "INFO archive: raw payloads archived to s3 prefix=%s (%s)", cfg.S3.KeyPrefix, mode)
	return NewArchive(store, cfg.S3.KeyPrefix, cfg.S3.PresignTTLSeconds), nil
}

func logf(logger Logger, format string, v ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, v...)
}
