package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BackendKind selects the backend implementation.
type BackendKind string

const (
	BackendFS     BackendKind = "fs"
	BackendMemory BackendKind = "memory"
	BackendSQLite BackendKind = "sqlite"
	BackendS3     BackendKind = "s3"
	BackendHTTP   BackendKind = "http"
)

// ParseBackendKind validates a backend name.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(s)); k {
	case BackendFS, BackendMemory, BackendSQLite, BackendS3, BackendHTTP:
		return k, nil
	}
	return "", fmt.Errorf("invalid backend %q (expected one of fs, memory, sqlite, s3, http)", s)
}

// --------------------------------------------------------------------------
// Backend configuration struct
// --------------------------------------------------------------------------

// S3Config holds the object store connection.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// BackendConfig describes which backend to open and how.
type BackendConfig struct {
	Kind       BackendKind
	DataDir    string
	SQLitePath string
	S3         S3Config

	// http backend
	Endpoints     []string
	TimeoutSecond int
	RetryCount    int
}

// --------------------------------------------------------------------------
// File proxy server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the settings of the HTTP file proxy.
type ServerConfig struct {
	Backend BackendConfig

	// HTTP api settings
	Endpoint      string
	TimeoutSecond int64
	MaxBodyBytes  int64

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatHelpers(&sb)

	addSection("File Proxy")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Body", fmt.Sprintf("%d bytes", c.MaxBodyBytes))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	c.Backend.write(addSection, addField)
	return sb.String()
}

// --------------------------------------------------------------------------
// Document store configuration struct
// --------------------------------------------------------------------------

// StoreConfig holds the settings for a document store client.
type StoreConfig struct {
	Backend BackendConfig

	CacheTTL           time.Duration
	CacheListAllTTL    time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	// Fanout bounds the parallel reads of listing operations
	Fanout int

	LogLevel string
}

// String returns a formatted string representation of the store configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatHelpers(&sb)

	addSection("Cache")
	addField("TTL", c.CacheTTL.String())
	addField("List-All TTL", c.CacheListAllTTL.String())
	if c.CacheMaxEntries > 0 {
		addField("Max Entries", strconv.Itoa(c.CacheMaxEntries))
	} else {
		addField("Max Entries", "unbounded")
	}
	addField("Sweep Interval", c.CacheSweepInterval.String())

	addSection("Store")
	addField("Fanout", strconv.Itoa(c.Fanout))
	addField("Log Level", c.LogLevel)

	c.Backend.write(addSection, addField)
	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatHelpers(sb *strings.Builder) (addSection func(string), addField func(string, string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}

func (c *BackendConfig) write(addSection func(string), addField func(string, string)) {
	addSection("Backend")
	addField("Kind", string(c.Kind))
	switch c.Kind {
	case BackendFS:
		addField("Data Directory", c.DataDir)
	case BackendSQLite:
		addField("Database", c.SQLitePath)
	case BackendS3:
		addField("Endpoint", c.S3.Endpoint)
		addField("Bucket", c.S3.Bucket)
		addField("Prefix", c.S3.Prefix)
		addField("SSL", strconv.FormatBool(c.S3.UseSSL))
	case BackendHTTP:
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
		addField("Retry Count", strconv.Itoa(c.RetryCount))
		for i, endpoint := range c.Endpoints {
			addField("Endpoint "+strconv.Itoa(i), endpoint)
		}
	}
}
