package server

import "github.com/0xPolygonHermez/zkevm-swap-service/config/types"

// Config struct
type Config struct {
	// Host to bind the HTTP API to
	Host string `mapstructure:"Host"`
	// HTTPPort is TCP port to listen by the HTTP API
	HTTPPort string `mapstructure:"HTTPPort"`
	// ReadTimeout of a request
	ReadTimeout types.Duration `mapstructure:"ReadTimeout"`
	// WriteTimeout of a response. ReleaseSecret blocks until finality so keep it above the longest wait
	WriteTimeout types.Duration `mapstructure:"WriteTimeout"`
	// AllowedOrigins for CORS. Empty allows any origin
	AllowedOrigins []string `mapstructure:"AllowedOrigins"`
	// DefaultPageLimit is used when a list request gives no limit
	DefaultPageLimit uint32 `mapstructure:"DefaultPageLimit"`
	// MaxPageLimit caps the limit of list requests
	MaxPageLimit uint32 `mapstructure:"MaxPageLimit"`
	// CacheSize is the number of settled orders kept in memory
	CacheSize int `mapstructure:"CacheSize"`
}
