package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr      = ":3000"
	DefaultStaticDir       = "./static"
	DefaultCookieMaxAge    = 7 * 24 * time.Hour
	DefaultCookieName      = "davesrecords_session"
	DefaultCacheMemorySize = 4096
	DefaultAuditExportFile = "./logs/audit.jsonl"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql or sqlite
	DSN             string        `mapstructure:"dsn"`
	TablePrefix     string        `mapstructure:"tablePrefix"`
	Replicas        []string      `mapstructure:"replicas"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type SessionConfig struct {
	SessionMaxAge  time.Duration `mapstructure:"sessionMaxAge"`
	CookieName     string        `mapstructure:"cookieName"`
	CookieHttpOnly bool          `mapstructure:"cookieHttpOnly"`
	CookieSecure   bool          `mapstructure:"cookieSecure"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

type MailConfig struct {
	Backend string     `mapstructure:"backend"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	MemorySize int           `mapstructure:"memorySize"`
}

type RateLimitConfig struct {
	Backend           string `mapstructure:"backend"`
	RequestsPerMinute int    `mapstructure:"requestsPerMinute"`
	Burst             int    `mapstructure:"burst"`
}

type DiscogsConfig struct {
	ConsumerKey    string        `mapstructure:"consumerKey"`
	ConsumerSecret string        `mapstructure:"consumerSecret"`
	UserAgent      string        `mapstructure:"userAgent"`
	APIURL         string        `mapstructure:"apiURL"`
	AuthorizeURL   string        `mapstructure:"authorizeURL"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type CollectionConfig struct {
	PageSize int `mapstructure:"pageSize"`
}

type AuditExportConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
	QueueSize  int    `mapstructure:"queueSize"`
}

type AuditAlertConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	MinSeverity int      `mapstructure:"minSeverity"`
	Recipients  []string `mapstructure:"recipients"`
}

type AuditConfig struct {
	Export AuditExportConfig `mapstructure:"export"`
	Alert  AuditAlertConfig  `mapstructure:"alert"`
}

type AdminConfig struct {
	Usernames []string `mapstructure:"usernames"`
}

type Config struct {
	Debug        bool             `mapstructure:"debug"`
	SiteName     string           `mapstructure:"siteName"`
	BaseURL      string           `mapstructure:"baseURL"`
	MasterKey    string           `mapstructure:"masterKey"`
	ListenAddr   string           `mapstructure:"listenAddr"`
	StaticDir    string           `mapstructure:"staticDir"`
	TemplateDir  string           `mapstructure:"templateDir"`
	AllowOrigins []string         `mapstructure:"allowOrigins"`
	Database     DatabaseConfig   `mapstructure:"database"`
	Redis        RedisConfig      `mapstructure:"redis"`
	Session      SessionConfig    `mapstructure:"session"`
	Cache        CacheConfig      `mapstructure:"cache"`
	RateLimit    RateLimitConfig  `mapstructure:"rateLimit"`
	Discogs      DiscogsConfig    `mapstructure:"discogs"`
	Collection   CollectionConfig `mapstructure:"collection"`
	Audit        AuditConfig      `mapstructure:"audit"`
	Mail         MailConfig       `mapstructure:"mail"`
	Admin        AdminConfig      `mapstructure:"admin"`
}

func validBackend(backend string) bool {
	return backend == BackendRedis || backend == BackendMemory
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.StaticDir == "" {
		c.StaticDir = DefaultStaticDir
	}
	if c.SiteName == "" {
		c.SiteName = params.ProductName
	}
	if c.MasterKey == "" {
		return fmt.Errorf("masterKey is required")
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Session.SessionMaxAge == 0 {
		c.Session.SessionMaxAge = DefaultCookieMaxAge
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}

	// the shared backends default to redis when one is configured
	defaultBackend := BackendMemory
	if c.Redis.URL != "" {
		defaultBackend = BackendRedis
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultBackend
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = params.CollectionCacheTTL
	}
	if c.Cache.MemorySize <= 0 {
		c.Cache.MemorySize = DefaultCacheMemorySize
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = defaultBackend
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = params.PublicRateLimitPerMinute
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = params.PublicRateLimitBurst
	}
	for _, backend := range []string{c.Cache.Backend, c.RateLimit.Backend} {
		if !validBackend(backend) {
			return fmt.Errorf("unsupported backend %q", backend)
		}
		if backend == BackendRedis && c.Redis.URL == "" {
			return fmt.Errorf("backend %q requires redis.url", backend)
		}
	}

	if c.Discogs.APIURL == "" {
		c.Discogs.APIURL = params.DiscogsAPIURL
	}
	if c.Discogs.AuthorizeURL == "" {
		c.Discogs.AuthorizeURL = params.DiscogsAuthorizeURL
	}
	if c.Discogs.UserAgent == "" {
		c.Discogs.UserAgent = params.DiscogsUserAgent
	}
	if c.Discogs.Timeout <= 0 {
		c.Discogs.Timeout = params.DiscogsRequestTimeout
	}

	if c.Collection.PageSize <= 0 {
		c.Collection.PageSize = params.CollectionDefaultPageSize
	}
	if c.Collection.PageSize > params.CollectionMaxPageSize {
		c.Collection.PageSize = params.CollectionMaxPageSize
	}

	if c.Audit.Export.Filename == "" {
		c.Audit.Export.Filename = DefaultAuditExportFile
	}
	if c.Audit.Export.QueueSize <= 0 {
		c.Audit.Export.QueueSize = params.AuditExportQueueSize
	}
	if c.Audit.Alert.MinSeverity == 0 {
		c.Audit.Alert.MinSeverity = ocsf.SeverityHigh
	}
	if c.Audit.Alert.Enabled && c.Mail.Backend == "" {
		return fmt.Errorf("audit.alert requires a mail backend")
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("cache.enabled", true)
	v.SetDefault("session.cookieHttpOnly", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
