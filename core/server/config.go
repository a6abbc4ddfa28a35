package server

// Config holds configuration for the HTTP server and the local session.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Pubkey is the local session user's pubkey. Repost state is scoped
	// to this user.
	Pubkey string `mapstructure:"pubkey" default:""`
	// Secret is the signing secret for the local session.
	Secret string `mapstructure:"secret" default:""`
	// FetchLimit bounds how many remote events a sync or fetch requests.
	FetchLimit int `mapstructure:"fetch_limit" default:"500"`
}
