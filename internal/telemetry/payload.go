package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

var payloadSeq atomic.Int64

// PersistPayload writes v as indented JSON to
// <ArtifactsDir>/payloads/<turn_id>-<seq>-<kind>.json when payload persistence is on.
// It returns the written path, or "" when nothing was written.
func PersistPayload(ctx context.Context, kind string, v any) string {
	if !PersistPayloadsEnabled() {
		return ""
	}
	turnID, ok := TurnIDFromContext(ctx)
	if !ok {
		turnID = "no-turn"
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: marshal payload: %v\n", err)
		return ""
	}

	dir := filepath.Join(ArtifactsDir(), "payloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", dir, err)
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%04d-%s.json", turnID, payloadSeq.Add(1), kind))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", path, err)
		return ""
	}
	return path
}
