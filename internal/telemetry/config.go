package telemetry

import (
	"os"
	"sync"
)

const defaultArtifactsDir = ".agent"

var (
	mu                     sync.RWMutex
	observeEnabled         bool
	persistPayloadsEnabled bool
	artifactsDir           string
)

func init() {
	// Read once at process start. Configure may switch features on later.
	observeEnabled = os.Getenv("AGT_OBSERVE_JSON") == "1"
	persistPayloadsEnabled = os.Getenv("AGT_PERSIST_API_PAYLOADS") == "1"
}

// Config switches telemetry features on from a config file. Environment values of
// "1" still enable a feature that Config leaves off.
type Config struct {
	Observe         bool
	PersistPayloads bool
	ArtifactsDir    string
}

// Configure applies c on top of the startup environment.
func Configure(c Config) {
	mu.Lock()
	defer mu.Unlock()
	observeEnabled = observeEnabled || c.Observe
	persistPayloadsEnabled = persistPayloadsEnabled || c.PersistPayloads
	artifactsDir = c.ArtifactsDir
}

// ObserveEnabled reports whether JSONL event emission is on.
func ObserveEnabled() bool {
	// Allow tests to enable mid-run via env override.
	if os.Getenv("AGT_OBSERVE_JSON") == "1" {
		return true
	}
	mu.RLock()
	defer mu.RUnlock()
	return observeEnabled
}

// PersistPayloadsEnabled reports whether request and response payloads are written to disk.
func PersistPayloadsEnabled() bool {
	if os.Getenv("AGT_PERSIST_API_PAYLOADS") == "1" {
		return true
	}
	mu.RLock()
	defer mu.RUnlock()
	return persistPayloadsEnabled
}

// ArtifactsDir is where events and payloads are written:
// AGT_ARTIFACTS_DIR, then the configured directory, then .agent.
func ArtifactsDir() string {
	if v := os.Getenv("AGT_ARTIFACTS_DIR"); v != "" {
		return v
	}
	mu.RLock()
	defer mu.RUnlock()
	if artifactsDir != "" {
		return artifactsDir
	}
	return defaultArtifactsDir
}
