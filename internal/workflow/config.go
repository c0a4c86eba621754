package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/JaimeStill/appart/pkg/activity"
)

// StepAcquire is the activity step name for download and rasterization.
const StepAcquire = "acquire"

// Config holds orchestrator settings in their file form.
type Config struct {
	MaxConcurrency int             `toml:"max_concurrency"`
	ClassifyPages  int             `toml:"classify_pages"`
	ExtractPages   int             `toml:"extract_pages"`
	Routing        string          `toml:"routing"`
	Retry          activity.Config `toml:"retry"`
	Timeouts       TimeoutConfig   `toml:"timeouts"`
}

// TimeoutConfig holds per-attempt deadlines as duration strings.
type TimeoutConfig struct {
	Acquire    string `toml:"acquire"`
	Classify   string `toml:"classify"`
	Extract    string `toml:"extract"`
	Synthesize string `toml:"synthesize"`
	Persist    string `toml:"persist"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxConcurrency string
	ClassifyPages  string
	ExtractPages   string
	Routing        string
	Retry          *activity.Env
	Acquire        string
	Classify       string
	Extract        string
	Synthesize     string
	Persist        string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if err := c.validate(); err != nil {
		return err
	}

	var retryEnv *activity.Env
	if env != nil {
		retryEnv = env.Retry
	}
	if err := c.Retry.Finalize(retryEnv); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxConcurrency != 0 {
		c.MaxConcurrency = overlay.MaxConcurrency
	}
	if overlay.ClassifyPages != 0 {
		c.ClassifyPages = overlay.ClassifyPages
	}
	if overlay.ExtractPages != 0 {
		c.ExtractPages = overlay.ExtractPages
	}
	if overlay.Routing != "" {
		c.Routing = overlay.Routing
	}
	c.Retry.Merge(&overlay.Retry)
	c.Timeouts.merge(&overlay.Timeouts)
}

// RoutingPolicy returns the parsed routing policy.
func (c *Config) RoutingPolicy() Routing {
	r, _ := ParseRouting(c.Routing)
	return r
}

// PersistTimeout returns the deadline for each persistence side effect.
func (c *Config) PersistTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeouts.Persist)
	return d
}

// Executor builds the activity supervisor for the workflow steps, using
// the retry settings with a per-step attempt timeout.
func (c *Config) Executor(logger *slog.Logger) *activity.Supervisor {
	base := c.Retry.Policy()
	sup := activity.New(base, logger)

	steps := map[string]string{
		StepAcquire:    c.Timeouts.Acquire,
		StepClassify:   c.Timeouts.Classify,
		StepExtract:    c.Timeouts.Extract,
		StepSynthesize: c.Timeouts.Synthesize,
	}
	for step, raw := range steps {
		d, _ := time.ParseDuration(raw)
		sup.WithPolicy(step, base.WithTimeout(d))
	}
	return sup
}

func (c *Config) loadDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = runtime.NumCPU()
	}
	if c.ClassifyPages <= 0 {
		c.ClassifyPages = MaxClassifyPages
	}
	if c.ExtractPages <= 0 {
		c.ExtractPages = 20
	}
	if c.Routing == "" {
		c.Routing = string(RoutingPriority)
	}
	c.Timeouts.loadDefaults()
}

func (c *Config) loadEnv(env *Env) {
	setInt := func(key string, dst *int) {
		if key == "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if key == "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt(env.MaxConcurrency, &c.MaxConcurrency)
	setInt(env.ClassifyPages, &c.ClassifyPages)
	setInt(env.ExtractPages, &c.ExtractPages)
	setString(env.Routing, &c.Routing)
	setString(env.Acquire, &c.Timeouts.Acquire)
	setString(env.Classify, &c.Timeouts.Classify)
	setString(env.Extract, &c.Timeouts.Extract)
	setString(env.Synthesize, &c.Timeouts.Synthesize)
	setString(env.Persist, &c.Timeouts.Persist)
}

func (c *Config) validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max_concurrency must be positive", ErrInvalidConfig)
	}
	if c.ClassifyPages < 1 || c.ClassifyPages > MaxClassifyPages {
		return fmt.Errorf("%w: classify_pages must be between 1 and %d", ErrInvalidConfig, MaxClassifyPages)
	}
	if c.ExtractPages < 1 {
		return fmt.Errorf("%w: extract_pages must be positive", ErrInvalidConfig)
	}
	if _, err := ParseRouting(c.Routing); err != nil {
		return err
	}
	return c.Timeouts.validate()
}

func (t *TimeoutConfig) loadDefaults() {
	if t.Acquire == "" {
		t.Acquire = "15m"
	}
	if t.Classify == "" {
		t.Classify = "2m"
	}
	if t.Extract == "" {
		t.Extract = "10m"
	}
	if t.Synthesize == "" {
		t.Synthesize = "10m"
	}
	if t.Persist == "" {
		t.Persist = "30s"
	}
}

func (t *TimeoutConfig) merge(overlay *TimeoutConfig) {
	if overlay.Acquire != "" {
		t.Acquire = overlay.Acquire
	}
	if overlay.Classify != "" {
		t.Classify = overlay.Classify
	}
	if overlay.Extract != "" {
		t.Extract = overlay.Extract
	}
	if overlay.Synthesize != "" {
		t.Synthesize = overlay.Synthesize
	}
	if overlay.Persist != "" {
		t.Persist = overlay.Persist
	}
}

func (t *TimeoutConfig) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"acquire", t.Acquire},
		{"classify", t.Classify},
		{"extract", t.Extract},
		{"synthesize", t.Synthesize},
		{"persist", t.Persist},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return fmt.Errorf("%w: invalid %s timeout: %w", ErrInvalidConfig, f.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s timeout must be positive", ErrInvalidConfig, f.name)
		}
	}
	return nil
}
