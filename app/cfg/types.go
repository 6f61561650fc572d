package cfg

import "time"

type Cfg struct {
	// Source configuration
	MemosConfig string
	FeedsConfig string
	NoDefaults  bool

	// Upstream access
	MemosAPIURL    string
	UserAgent      string
	FetchTimeout   int
	PageSize       int
	FaviconService string
	RelayRestrict  bool

	// Application configuration
	Port          string
	BaseUrl       string
	DBPath        string
	WorkerCount   int
	ProbeInterval int
	APIAccessKey  string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c *Cfg) GetProbeInterval() time.Duration {
	if c.ProbeInterval <= 0 {
		return 0
	}
	return time.Duration(c.ProbeInterval) * time.Second
}
