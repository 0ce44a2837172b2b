package params

import "time"

const (
	ServerBodyLimit    = 1048576 // 1 MiB
	ServerIdleTimeout  = 30 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second // own-view reads walk every upstream page

	CollectionCacheKeyPrefix  = "collection:"
	CollectionCacheTTL        = 1 * time.Hour // time to live of a cached public collection page
	CollectionDefaultPageSize = 24
	CollectionMaxPageSize     = 100

	DiscogsAPIURL             = "https://api.discogs.com"
	DiscogsAuthorizeURL       = "https://www.discogs.com/oauth/authorize"
	DiscogsUserAgent          = "DavesRecords/1.0 +https://github.com/davesrecords/davesrecords"
	DiscogsPerPage            = 100 // maximum page size accepted by the collection endpoint
	DiscogsMaxCollectionPages = 50  // upper bound of upstream pages fetched per collection read
	DiscogsRequestTimeout     = 15 * time.Second

	// last page that can hold albums with a page size of one
	CollectionMaxPage = DiscogsMaxCollectionPages * DiscogsPerPage

	RateLimitKeyPrefix        = "rl:"
	RateLimitWindow           = time.Minute
	PublicRateLimitPerMinute  = 60 // public collection reads per client ip per minute
	PublicRateLimitBurst      = 20
	RateLimitMemoryMaxClients = 10000

	AuditDefaultQueryLimit = 50
	AuditMaxQueryLimit     = 500
	AuditExportQueueSize   = 1024
	AuditAlertTimeout      = 30 * time.Second

	OAuthRequestTokenExpiration = 10 * time.Minute // pending discogs handshake lifetime
	HealthCheckServerAddr       = ":3001"          // health check server address
	APIVersion                  = "1.0"

	ProductName   = "Dave's Records"
	ProductVendor = "Dave's Records"
)

var Version = "1.0.0"

func VersionWithCommit(gitCommit, gitDate string) string {
	version := Version
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}
