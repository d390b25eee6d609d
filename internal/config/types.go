package config

// Config is the root configuration for anfbot.
type Config struct {
	Tools    ToolsConfig    `yaml:"tools,omitempty"`
	Identity IdentityConfig `yaml:"identity,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Channels ChannelsConfig `yaml:"channels,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Hooks    HooksConfig    `yaml:"hooks,omitempty"`
}

// ToolsConfig points at the remote tool-calling service that performs the
// actual storage management operations.
type ToolsConfig struct {
	BaseURL        string       `yaml:"baseUrl"`
	APIKey         string       `yaml:"apiKey,omitempty"`
	OAuth          *OAuthConfig `yaml:"oauth,omitempty"`
	TimeoutSeconds int          `yaml:"timeoutSeconds,omitempty"`
	MaxAttempts    int          `yaml:"maxAttempts,omitempty"`
}

// OAuthConfig configures client-credentials token acquisition for the tool
// service. Secrets may be stored as ${ENV_VAR} references.
type OAuthConfig struct {
	TokenURL     string   `yaml:"tokenUrl"`
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// IdentityConfig defines the static user table and the Azure scope all
// operations run under.
type IdentityConfig struct {
	TenantID       string               `yaml:"tenantId,omitempty"`
	SubscriptionID string               `yaml:"subscriptionId,omitempty"`
	Users          map[string]UserEntry `yaml:"users,omitempty"`
	Roles          map[string][]string  `yaml:"roles,omitempty"` // extra roles merged over the built-ins
}

// UserEntry maps one chat user to roles and direct permission grants.
type UserEntry struct {
	Roles  []string `yaml:"roles,omitempty"`
	Grants []string `yaml:"grants,omitempty"`
}

// SessionConfig defines parameter-collection session behavior.
type SessionConfig struct {
	TTLMinutes int    `yaml:"ttlMinutes,omitempty"`
	Store      string `yaml:"store,omitempty"` // "memory" | "sqlite"
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port int         `yaml:"port,omitempty"`
	Bind string      `yaml:"bind,omitempty"` // "loopback" | "lan"
	Auth GatewayAuth `yaml:"auth,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// ChannelsConfig defines channel-specific configurations.
type ChannelsConfig struct {
	IRC *IRCConfig `yaml:"irc,omitempty"`
}

// IRCConfig defines IRC channel settings.
type IRCConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port,omitempty"`
	Nick     string   `yaml:"nick"`
	Password string   `yaml:"password,omitempty"`
	Channels []string `yaml:"channels"`
	UseTLS   bool     `yaml:"useTLS,omitempty"`
	SASL     bool     `yaml:"sasl,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}

// HooksConfig defines event hooks.
type HooksConfig struct {
	CommandDispatched []HookEntry `yaml:"commandDispatched,omitempty"`
	CommandDenied     []HookEntry `yaml:"commandDenied,omitempty"`
	GatewayStart      []HookEntry `yaml:"gatewayStart,omitempty"`
	GatewayStop       []HookEntry `yaml:"gatewayStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
