package annotation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/labels"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Meta struct {
		Description string `yaml:"description"`
	} `yaml:"meta"`
	Storage StorageConfig `yaml:"storage"`
	Blobs   BlobsConfig   `yaml:"blobs"`
	Editor  EditorConfig  `yaml:"editor"`
	Browse  BrowseConfig  `yaml:"browse"`
	Server  ServerConfig  `yaml:"server"`
}

type StorageConfig struct {
	// Backend is one of sqlite, postgres, rest or memory
	Backend  string     `yaml:"backend"`
	SQLite   string     `yaml:"sqlite"`
	Postgres string     `yaml:"postgres"`
	REST     RESTConfig `yaml:"rest"`
}

type RESTConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type BlobsConfig struct {
	// Backend is one of filesystem or minio
	Backend string           `yaml:"backend"`
	Dir     string           `yaml:"dir"`
	Minio   blob.MinioConfig `yaml:"minio"`
}

type EditorConfig struct {
	MaxHistory int           `yaml:"max_history"`
	Debounce   time.Duration `yaml:"debounce"`
	LabelMatch string        `yaml:"label_match"`
}

type BrowseConfig struct {
	PrefetchWindow int    `yaml:"prefetch_window"`
	PageSize       int    `yaml:"page_size"`
	Cache          string `yaml:"cache"`
	Redis          struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// editing sessions idle for this long are closed
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
	MaxSessions        int           `yaml:"max_sessions"`
}

// LoadConfig reads a YAML config file, applies STUDIO_* overrides from the
// environment (and from a .env file next to it, if any) and validates it.
// Relative paths are resolved against the config file's folder.
func LoadConfig(filename string) (*Config, error) {
	var ret Config
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("while parsing config '%s': %w", filename, err)
	}

	baseDir := filepath.Dir(filename)
	// a missing .env is fine
	_ = godotenv.Load(filepath.Join(baseDir, ".env"))
	if err := ret.applyEnv(); err != nil {
		return nil, err
	}
	ret.setDefaults()
	ret.resolvePaths(baseDir)
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return &ret, nil
}

// DefaultConfig is the config of a fresh project rooted at dir
func DefaultConfig(dir string) *Config {
	var ret Config
	ret.setDefaults()
	ret.resolvePaths(dir)
	return &ret
}

func (c *Config) setDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLite == "" {
		c.Storage.SQLite = "studio.db"
	}
	if c.Storage.REST.Timeout <= 0 {
		c.Storage.REST.Timeout = 30 * time.Second
	}
	if c.Blobs.Backend == "" {
		c.Blobs.Backend = "filesystem"
	}
	if c.Blobs.Backend == "filesystem" && c.Blobs.Dir == "" {
		c.Blobs.Dir = "blobs"
	}
	if c.Editor.MaxHistory <= 0 {
		c.Editor.MaxHistory = 100
	}
	if c.Editor.Debounce <= 0 {
		c.Editor.Debounce = 300 * time.Millisecond
	}
	if c.Editor.LabelMatch == "" {
		c.Editor.LabelMatch = labels.MatchName.String()
	}
	if c.Browse.PrefetchWindow <= 0 {
		c.Browse.PrefetchWindow = 10
	}
	if c.Browse.PageSize <= 0 {
		c.Browse.PageSize = 20
	}
	if c.Browse.Cache == "" {
		c.Browse.Cache = "memory"
	}
	if c.Browse.Cache == "redis" && c.Browse.Redis.Addr == "" {
		c.Browse.Redis.Addr = "localhost:6379"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionIdleTimeout <= 0 {
		c.Server.SessionIdleTimeout = 30 * time.Minute
	}
	if c.Server.MaxSessions <= 0 {
		c.Server.MaxSessions = 256
	}
}

func (c *Config) resolvePaths(baseDir string) {
	if c.Storage.SQLite != "" && c.Storage.SQLite != ":memory:" && !filepath.IsAbs(c.Storage.SQLite) {
		c.Storage.SQLite = filepath.Join(baseDir, c.Storage.SQLite)
	}
	if c.Blobs.Dir != "" && !filepath.IsAbs(c.Blobs.Dir) {
		c.Blobs.Dir = filepath.Join(baseDir, c.Blobs.Dir)
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLite == "" {
			return fmt.Errorf("storage: sqlite backend needs a database path")
		}
	case "postgres":
		if c.Storage.Postgres == "" {
			return fmt.Errorf("storage: postgres backend needs a dsn")
		}
	case "rest":
		if c.Storage.REST.URL == "" {
			return fmt.Errorf("storage: rest backend needs an url")
		}
	case "memory":
	default:
		return fmt.Errorf("storage: unknown backend '%s'", c.Storage.Backend)
	}

	switch c.Blobs.Backend {
	case "filesystem":
	case "minio":
		if c.Blobs.Minio.Endpoint == "" || c.Blobs.Minio.Bucket == "" {
			return fmt.Errorf("blobs: minio backend needs an endpoint and a bucket")
		}
	default:
		return fmt.Errorf("blobs: unknown backend '%s'", c.Blobs.Backend)
	}

	if _, err := labels.ParseMatchMode(c.Editor.LabelMatch); err != nil {
		return fmt.Errorf("editor: %w", err)
	}

	switch c.Browse.Cache {
	case "memory", "redis":
	default:
		return fmt.Errorf("browse: unknown cache '%s'", c.Browse.Cache)
	}
	return nil
}

// MatchMode is the parsed editor.label_match
func (c *Config) MatchMode() labels.MatchMode {
	mode, _ := labels.ParseMatchMode(c.Editor.LabelMatch)
	return mode
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("while parsing %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("while parsing %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("STUDIO_STORAGE_BACKEND", &c.Storage.Backend)
	setString("STUDIO_SQLITE_PATH", &c.Storage.SQLite)
	setString("STUDIO_POSTGRES_DSN", &c.Storage.Postgres)
	setString("STUDIO_REST_URL", &c.Storage.REST.URL)
	setString("STUDIO_REST_TOKEN", &c.Storage.REST.Token)
	setString("STUDIO_BLOBS_BACKEND", &c.Blobs.Backend)
	setString("STUDIO_BLOBS_DIR", &c.Blobs.Dir)
	setString("STUDIO_MINIO_ENDPOINT", &c.Blobs.Minio.Endpoint)
	setString("STUDIO_MINIO_ACCESS_KEY", &c.Blobs.Minio.AccessKey)
	setString("STUDIO_MINIO_SECRET_KEY", &c.Blobs.Minio.SecretKey)
	setString("STUDIO_MINIO_BUCKET", &c.Blobs.Minio.Bucket)
	if v, ok := os.LookupEnv("STUDIO_MINIO_USE_SSL"); ok {
		c.Blobs.Minio.UseSSL = v == "true" || v == "1" || v == "yes"
	}
	setString("STUDIO_LABEL_MATCH", &c.Editor.LabelMatch)
	setString("STUDIO_BROWSE_CACHE", &c.Browse.Cache)
	setString("STUDIO_REDIS_ADDR", &c.Browse.Redis.Addr)
	setString("STUDIO_REDIS_PASSWORD", &c.Browse.Redis.Password)
	setString("STUDIO_ADDR", &c.Server.Addr)

	for key, dst := range map[string]*int{
		"STUDIO_MAX_HISTORY":     &c.Editor.MaxHistory,
		"STUDIO_PREFETCH_WINDOW": &c.Browse.PrefetchWindow,
		"STUDIO_PAGE_SIZE":       &c.Browse.PageSize,
		"STUDIO_REDIS_DB":        &c.Browse.Redis.DB,
		"STUDIO_MAX_SESSIONS":    &c.Server.MaxSessions,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}
	if err := setDuration("STUDIO_DEBOUNCE", &c.Editor.Debounce); err != nil {
		return err
	}
	if err := setDuration("STUDIO_SESSION_IDLE_TIMEOUT", &c.Server.SessionIdleTimeout); err != nil {
		return err
	}
	return setDuration("STUDIO_REST_TIMEOUT", &c.Storage.REST.Timeout)
}

// WriteSampleConfig writes a commented config for a new project
func WriteSampleConfig(filename string) error {
	return os.WriteFile(filename, []byte(sampleConfig), 0644)
}

const sampleConfig = `# rotulador-studio configuration file

meta:
  description: |
    Sample annotation project.
    Edit this description to explain what you're annotating.

# Where projects, images, labels and annotations are kept.
# backend: sqlite | postgres | rest | memory
storage:
  backend: sqlite
  sqlite: studio.db
  # postgres: "host=localhost user=studio dbname=studio sslmode=disable"
  # rest:
  #   url: http://localhost:8080
  #   token: ""

# Where the image files themselves are kept.
# backend: filesystem | minio
blobs:
  backend: filesystem
  dir: blobs
  # minio:
  #   endpoint: localhost:9000
  #   access_key: minioadmin
  #   secret_key: minioadmin
  #   bucket: studio

editor:
  max_history: 100
  debounce: 300ms
  # name | name+color
  label_match: name

browse:
  prefetch_window: 10
  page_size: 20
  # memory | redis
  cache: memory
  # redis:
  #   addr: localhost:6379

server:
  addr: ":8080"
  session_idle_timeout: 30m
  max_sessions: 256
`
