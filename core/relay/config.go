package relay

import "strings"

// Config holds configuration for the relay gateway.
type Config struct {
	// URLs is a comma-separated list of relay websocket URLs.
	URLs string `mapstructure:"urls" default:"wss://relay.damus.io"`
	// TimeoutSeconds is the per-relay request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
}

// URLList returns the configured relay URLs as a slice.
func (c Config) URLList() []string {
	var urls []string
	for _, u := range strings.Split(c.URLs, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
