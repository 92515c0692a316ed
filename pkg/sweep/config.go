package sweep

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages sweep configuration using Viper. The defaults reproduce
// the standard analysis run; every knob can be overridden from a config
// file, the CLI, or programmatically via Set.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a configuration with the standard defaults.
func NewConfig() *Config {
	v := viper.New()

	// Parameter sweep
	v.SetDefault("sweep.gene_counts", []int{500, 1000, 2000, 5000})
	v.SetDefault("sweep.label_prefix", "hvg_")

	// Normalization
	v.SetDefault("normalize.target_sum", 1e4)

	// Reductions
	v.SetDefault("pca.components", 30)
	v.SetDefault("embed.dims", 15)

	// Neighbor graph
	v.SetDefault("neighbors.dims", 15)
	v.SetDefault("neighbors.k", 15)

	// Clustering
	v.SetDefault("cluster.resolution", 3.0)
	v.SetDefault("cluster.obs_column", "cluster")

	// Reproducibility: one global seed drives every stochastic step.
	v.SetDefault("random_seed", int64(0))

	// Logging
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile loads configuration overrides from a file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Set overrides a single configuration key.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) GeneCounts() []int    { return c.v.GetIntSlice("sweep.gene_counts") }
func (c *Config) LabelPrefix() string  { return c.v.GetString("sweep.label_prefix") }
func (c *Config) TargetSum() float64   { return c.v.GetFloat64("normalize.target_sum") }
func (c *Config) PCAComponents() int   { return c.v.GetInt("pca.components") }
func (c *Config) EmbedDims() int       { return c.v.GetInt("embed.dims") }
func (c *Config) NeighborDims() int    { return c.v.GetInt("neighbors.dims") }
func (c *Config) NeighborK() int       { return c.v.GetInt("neighbors.k") }
func (c *Config) Resolution() float64  { return c.v.GetFloat64("cluster.resolution") }
func (c *Config) ClusterColumn() string { return c.v.GetString("cluster.obs_column") }
func (c *Config) RandomSeed() int64    { return c.v.GetInt64("random_seed") }
func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("component", "sweep").Logger()
}
