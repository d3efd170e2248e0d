package observability

import (
	"context"
	"testing"
	"time"
)

type countingHooks struct {
	starts    int
	completes int
	artifacts int
}

func (c *countingHooks) OnResolveStart(context.Context, int) { c.starts++ }
func (c *countingHooks) OnResolveComplete(context.Context, int, int, time.Duration, error) {
	c.completes++
}
func (c *countingHooks) OnArtifactsComplete(context.Context, int, int, time.Duration) {
	c.artifacts++
}

func TestDefaultsAreNoops(t *testing.T) {
	// Must not panic.
	Resolution().OnResolveStart(context.Background(), 1)
	Resolution().OnResolveComplete(context.Background(), 0, 0, 0, nil)
	Cache().OnHit("u")
	Cache().OnDownload("u", 0, 0, nil)
}

func TestSetResolutionHooks(t *testing.T) {
	t.Cleanup(func() { SetResolutionHooks(noopResolution{}) })

	h := &countingHooks{}
	SetResolutionHooks(h)

	Resolution().OnResolveStart(context.Background(), 2)
	Resolution().OnResolveComplete(context.Background(), 5, 1, time.Second, nil)
	Resolution().OnArtifactsComplete(context.Background(), 5, 0, time.Second)

	if h.starts != 1 || h.completes != 1 || h.artifacts != 1 {
		t.Errorf("hooks = %+v, want one call each", h)
	}
}

func TestSetNilKeepsCurrent(t *testing.T) {
	SetResolutionHooks(nil)
	if Resolution() == nil {
		t.Fatal("Resolution() returned nil after SetResolutionHooks(nil)")
	}
}
