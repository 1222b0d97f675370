package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/fsbackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/httpbackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/membackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/s3backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/sqlbackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/cache"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/lockmgr"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store/docstore"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (SKYDREAM_<FLAG>)
	EnvPrefix = "skydream"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// InitConfig loads .env files and makes viper read SKYDREAM_* variables.
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Backend
// --------------------------------------------------------------------------

// SetupBackendFlags adds the flags selecting and configuring the backend.
func SetupBackendFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, "fs", WrapString("The backend holding the documents (fs, memory, sqlite, s3, http)"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, "data", WrapString("(fs) Directory holding the documents"))

	key = "sqlite-path"
	cmd.PersistentFlags().String(key, "data/skydream.db", WrapString("(sqlite) Path of the database file"))

	key = "s3-endpoint"
	cmd.PersistentFlags().String(key, "localhost:9000", WrapString("(s3) Host and port of the object store"))
	key = "s3-access-key"
	cmd.PersistentFlags().String(key, "", WrapString("(s3) Access key"))
	key = "s3-secret-key"
	cmd.PersistentFlags().String(key, "", WrapString("(s3) Secret key"))
	key = "s3-bucket"
	cmd.PersistentFlags().String(key, "skydream", WrapString("(s3) Bucket, created if missing"))
	key = "s3-region"
	cmd.PersistentFlags().String(key, "", WrapString("(s3) Region"))
	key = "s3-prefix"
	cmd.PersistentFlags().String(key, "", WrapString("(s3) Key prefix of all documents"))
	key = "s3-ssl"
	cmd.PersistentFlags().Bool(key, false, WrapString("(s3) Use TLS"))

	key = "proxy-endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:3001", WrapString("(http) Comma-separated list of file proxy addresses, used round robin"))
	key = "proxy-timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("(http) Request timeout in seconds"))
	key = "proxy-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("(http) How many times to try a request"))
}

// GetBackendConfig reads the backend flags from viper
func GetBackendConfig() (common.BackendConfig, error) {
	kind, err := common.ParseBackendKind(viper.GetString("backend"))
	if err != nil {
		return common.BackendConfig{}, err
	}

	var endpoints []string
	for _, e := range strings.Split(viper.GetString("proxy-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return common.BackendConfig{
		Kind:       kind,
		DataDir:    viper.GetString("data-dir"),
		SQLitePath: viper.GetString("sqlite-path"),
		S3: common.S3Config{
			Endpoint:  viper.GetString("s3-endpoint"),
			AccessKey: viper.GetString("s3-access-key"),
			SecretKey: viper.GetString("s3-secret-key"),
			Bucket:    viper.GetString("s3-bucket"),
			Region:    viper.GetString("s3-region"),
			Prefix:    viper.GetString("s3-prefix"),
			UseSSL:    viper.GetBool("s3-ssl"),
		},
		Endpoints:     endpoints,
		TimeoutSecond: viper.GetInt("proxy-timeout"),
		RetryCount:    viper.GetInt("proxy-retries"),
	}, nil
}

// OpenBackend opens the configured backend, instrumented with timers in
// the default go-metrics registry.
func OpenBackend(ctx context.Context, conf common.BackendConfig) (backend.IBackend, error) {
	var (
		b   backend.IBackend
		err error
	)
	switch conf.Kind {
	case common.BackendFS:
		b, err = fsbackend.NewFSBackend(conf.DataDir)
	case common.BackendMemory:
		Logger.Warningf("using the memory backend, nothing will be persisted")
		b = membackend.NewMemBackend()
	case common.BackendSQLite:
		b, err = sqlbackend.NewSQLBackend(conf.SQLitePath)
	case common.BackendS3:
		b, err = s3backend.NewS3Backend(ctx, s3backend.Options{
			Endpoint:  conf.S3.Endpoint,
			AccessKey: conf.S3.AccessKey,
			SecretKey: conf.S3.SecretKey,
			Bucket:    conf.S3.Bucket,
			Region:    conf.S3.Region,
			UseSSL:    conf.S3.UseSSL,
			Prefix:    conf.S3.Prefix,
		})
	case common.BackendHTTP:
		b, err = httpbackend.NewHTTPBackend(conf)
	default:
		err = fmt.Errorf("invalid backend %q", conf.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", conf.Kind, err)
	}
	return backend.Instrument(b, gometrics.DefaultRegistry), nil
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// SetupStoreFlags adds the backend flags plus cache and store tuning.
func SetupStoreFlags(cmd *cobra.Command) {
	SetupBackendFlags(cmd)

	key := "cache-ttl"
	cmd.PersistentFlags().Duration(key, cache.DefaultTTL, WrapString("Lifetime of cached documents and per-user listings"))
	key = "cache-list-all-ttl"
	cmd.PersistentFlags().Duration(key, cache.ListAllTTL, WrapString("Lifetime of cached listings across all users"))
	key = "cache-max-entries"
	cmd.PersistentFlags().Int(key, 0, WrapString("Bound the cache to this many entries with LRU eviction (0 = unbounded)"))
	key = "cache-sweep-interval"
	cmd.PersistentFlags().Duration(key, time.Minute, WrapString("How often expired entries are dropped (0 = only on read)"))
	key = "fanout"
	cmd.PersistentFlags().Int(key, 16, WrapString("Maximum number of parallel backend reads per listing"))
	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// GetStoreConfig reads the store flags from viper
func GetStoreConfig() (*common.StoreConfig, error) {
	b, err := GetBackendConfig()
	if err != nil {
		return nil, err
	}
	conf := &common.StoreConfig{
		Backend:            b,
		CacheTTL:           viper.GetDuration("cache-ttl"),
		CacheListAllTTL:    viper.GetDuration("cache-list-all-ttl"),
		CacheMaxEntries:    viper.GetInt("cache-max-entries"),
		CacheSweepInterval: viper.GetDuration("cache-sweep-interval"),
		Fanout:             viper.GetInt("fanout"),
		LogLevel:           viper.GetString("log-level"),
	}
	if conf.Fanout < 1 {
		return nil, fmt.Errorf("fanout must be at least 1, got %d", conf.Fanout)
	}
	return conf, nil
}

// OpenStore opens the backend of conf and builds a document store on it.
func OpenStore(ctx context.Context, conf *common.StoreConfig) (store.IStore, error) {
	b, err := OpenBackend(ctx, conf.Backend)
	if err != nil {
		return nil, err
	}
	return NewStore(b, conf), nil
}

// NewStore builds a document store with the cache settings of conf on b.
func NewStore(b backend.IBackend, conf *common.StoreConfig) store.IStore {
	c := cache.New(cache.Options{
		Name:          "docstore",
		DefaultTTL:    conf.CacheTTL,
		SweepInterval: conf.CacheSweepInterval,
		MaxEntries:    conf.CacheMaxEntries,
	})
	return docstore.NewDocumentStore(b, docstore.Options{
		Cache:      c,
		Locks:      lockmgr.NewLockManager(),
		ListAllTTL: conf.CacheListAllTTL,
		Fanout:     conf.Fanout,
	})
}
