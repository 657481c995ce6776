package acceptecho

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route is an echo endpoint and the caching headers it responds with.
type Route struct {
	Path         string `yaml:"path"`
	CacheControl string `yaml:"cacheControl"`
	// Vary adds "Vary: Accept" to the response.
	Vary bool `yaml:"vary"`
}

type FileConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	Routes         []Route  `yaml:"routes"`
}

const DefaultCacheControl = "public, max-age=120, immutable"

// DefaultRoutes returns one route without and one route with Vary: Accept.
// Both allow shared caches to store the response for two minutes. Without
// Vary, a cache serves whichever representation it stored first, so either
// the page shows JSON or the script gets HTML.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/echo-accept-header", CacheControl: DefaultCacheControl},
		{Path: "/echo-accept-header-w-vary", CacheControl: DefaultCacheControl, Vary: true},
	}
}

// LoadConfig reads a YAML configuration file. Missing values get defaults.
func LoadConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, err
	}
	if config.Port == 0 {
		config.Port = 8880
	}
	if len(config.Routes) == 0 {
		config.Routes = DefaultRoutes()
	}
	for i, r := range config.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return config, fmt.Errorf("routes[%d].path must start with /, got %q", i, r.Path)
		}
	}
	return config, nil
}
