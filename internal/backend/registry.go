package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
	TypeS3     = "s3"
	TypeMemory = "memory"
)

// Config selects a backend and carries its raw options, usually straight out
// of the config file.
type Config struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// Info describes a backend type for the CLI listing.
type Info struct {
	Type        string
	Options     string
	Description string
}

var infos = map[string]Info{
	TypeFile: {
		Type:        TypeFile,
		Options:     "dir",
		Description: "One JSON file per session, atomic rename, flock per session",
	},
	TypeSQLite: {
		Type:        TypeSQLite,
		Options:     "path",
		Description: "Single SQLite database (WAL), pure Go driver",
	},
	TypeRedis: {
		Type:        TypeRedis,
		Options:     "url, prefix, lock_ttl",
		Description: "Redis keys with SET NX session locks",
	},
	TypeS3: {
		Type:        TypeS3,
		Options:     "bucket, prefix, region, endpoint, path_style, access_key_id, secret_access_key",
		Description: "S3 (or compatible) objects under a prefix",
	},
	TypeMemory: {
		Type:        TypeMemory,
		Options:     "-",
		Description: "Process memory only, lost on exit",
	},
}

// ListTypes returns the supported backends sorted by type.
func ListTypes() []Info {
	var result []Info
	for _, info := range infos {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// Open builds the backend named by cfg.Type.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeFile, "":
		var opts FileOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse file backend options: %w", err)
		}
		return NewFile(opts)

	case TypeSQLite:
		var opts SQLiteOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse sqlite backend options: %w", err)
		}
		return NewSQLite(opts)

	case TypeRedis:
		var opts RedisOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse redis backend options: %w", err)
		}
		return NewRedis(ctx, opts)

	case TypeS3:
		var opts S3Options
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse s3 backend options: %w", err)
		}
		return NewS3(ctx, opts)

	case TypeMemory:
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, cfg.Type)
	}
}

func parseOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
