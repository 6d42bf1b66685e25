package constants

// Application Information
const (
	AppName    = "DevCamper API"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "5000"
	DefaultEnvironment = EnvDevelopment
)

// Cache Key Prefixes
const (
	CacheKeyPrefix    = "devcamper:"
	CacheKeyRateLimit = CacheKeyPrefix + "ratelimit:"
	CacheKeyGeocode   = CacheKeyPrefix + "geocode:"
)
