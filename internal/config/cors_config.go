package config

import (
	"os"
	"strings"
)

type Cors struct{}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

// IsAllowedOrigin is an exact match on purpose: credentialed CORS plus a
// wildcard or prefix match would reopen cross-site request forgery.
func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

var productionOrigins = AllowedOrigins{
	"https://kitchenchat.live":        nullValue{},
	"https://www.kitchenchat.live":    nullValue{},
	"https://kitchen-chat.vercel.app": nullValue{},
}

var developmentOrigins = AllowedOrigins{
	"http://localhost:3000":           nullValue{},
	"http://127.0.0.1:3000":           nullValue{},
	"https://kitchenchat.live":        nullValue{},
	"https://www.kitchenchat.live":    nullValue{},
	"https://kitchen-chat.vercel.app": nullValue{},
}

// GetAllowedOrigins resolves the allow-list: the ALLOWED_ORIGINS env var
// (comma separated) wins, otherwise the per-environment defaults apply.
func (Cors) GetAllowedOrigins() AllowedOrigins {
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins := AllowedOrigins{}
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins[origin] = nullValue{}
			}
		}
		return origins
	}
	if (EnvVars{}).GetEnv() == "PRODUCTION" {
		return productionOrigins
	}
	return developmentOrigins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization, Cookie"
}
