package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stylerd/pkg/types"
)

// StubRuntime simulates the generation framework without a GPU. Footprints
// come from weight-file sizes, device bytes are attributed as if the weights
// were fully resident, and Generate writes a placeholder artifact. Used by
// tests, CI, and deployments probing the daemon without an accelerator.
type StubRuntime struct {
	// OutputDir receives generated artifacts. Empty means os.TempDir().
	OutputDir string
	// StepDelay paces the simulated sampling loop.
	StepDelay time.Duration
}

func NewStubRuntime(outputDir string) *StubRuntime {
	return &StubRuntime{OutputDir: outputDir, StepDelay: time.Millisecond}
}

func (rt *StubRuntime) LoadPipeline(ctx context.Context, desc types.Resource) (Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := desc.SizeBytes
	if size <= 0 {
		if fi, err := os.Stat(desc.Path); err == nil {
			size = fi.Size()
		}
	}
	if size <= 0 {
		return nil, fmt.Errorf("cannot size pipeline %s: empty descriptor and unreadable file", desc.ID)
	}
	return &stubPipeline{rt: rt, id: desc.ID, deviceBytes: size}, nil
}

func (rt *StubRuntime) Compose(ctx context.Context, base Pipeline, adapter types.Resource, weight float64) (Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bp, ok := base.(*stubPipeline)
	if !ok {
		return nil, fmt.Errorf("compose: base pipeline is not a stub pipeline")
	}
	if adapter.SizeBytes <= 0 {
		return nil, fmt.Errorf("cannot size adapter %s", adapter.ID)
	}
	return &stubPipeline{
		rt:          rt,
		id:          bp.id + "+" + adapter.ID,
		deviceBytes: bp.deviceBytes + adapter.SizeBytes,
	}, nil
}

type stubPipeline struct {
	rt          *StubRuntime
	id          string
	deviceBytes int64
	closed      bool
}

func (p *stubPipeline) Footprint() (int64, int64) { return p.deviceBytes, 0 }

func (p *stubPipeline) Generate(ctx context.Context, params types.GenerateParams, progress Progress) (string, error) {
	if p.closed {
		return "", fmt.Errorf("pipeline %s is closed", p.id)
	}
	steps := params.Steps
	if steps <= 0 {
		steps = 20
	}
	report := func(step string, frac float64) {
		if progress != nil {
			progress(step, frac)
		}
	}
	report("preparing", 0)
	for i := 0; i < steps; i++ {
		select {
		case <-time.After(p.rt.StepDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		report("sampling", float64(i+1)/float64(steps))
	}
	dir := p.rt.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "result-*.png")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "stub artifact: pipeline=%s input=%q prompt=%q\n", p.id, params.InputImage, params.Prompt); err != nil {
		return "", err
	}
	report("saving", 1)
	return filepath.Clean(f.Name()), nil
}

func (p *stubPipeline) Close() error {
	p.closed = true
	return nil
}
