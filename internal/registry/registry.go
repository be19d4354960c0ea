// Package registry discovers weight files on disk and maps stable resource
// ids to their descriptors. Descriptors are immutable; a rescan replaces the
// whole table.
package registry

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stylerd/internal/common/fsutil"
	"stylerd/pkg/types"
)

// Extensions recognized per resource kind, from the original deployment
// layout: full pipelines ship as safetensors/ckpt, adapters as safetensors/pt.
var (
	modelExts   = map[string]bool{".safetensors": true, ".ckpt": true}
	adapterExts = map[string]bool{".safetensors": true, ".pt": true}
)

// Registry is the read-mostly descriptor table.
type Registry struct {
	mu        sync.RWMutex
	modelsDir string
	lorasDir  string
	byID      map[string]types.Resource
}

// New builds a Registry over the given directories and performs the initial
// scan. A missing directory is not an error; it just contributes nothing.
func New(modelsDir, lorasDir string) (*Registry, error) {
	r := &Registry{
		modelsDir: modelsDir,
		lorasDir:  lorasDir,
		byID:      make(map[string]types.Resource),
	}
	if err := r.Rescan(); err != nil {
		return nil, err
	}
	return r, nil
}

// Rescan rebuilds the descriptor table from disk, replacing it wholesale.
func (r *Registry) Rescan() error {
	found := make(map[string]types.Resource)
	if err := scanDir(r.modelsDir, types.KindBaseModel, modelExts, found); err != nil {
		return err
	}
	if err := scanDir(r.lorasDir, types.KindAdapter, adapterExts, found); err != nil {
		return err
	}
	r.mu.Lock()
	r.byID = found
	r.mu.Unlock()
	return nil
}

// Get returns the descriptor for id. Implements the cache's resolver.
func (r *Registry) Get(id string) (types.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[id]
	return res, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []types.Resource {
	r.mu.RLock()
	out := make([]types.Resource, 0, len(r.byID))
	for _, res := range r.byID {
		out = append(out, res)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func scanDir(dir string, kind types.ResourceKind, exts map[string]bool, out map[string]types.Resource) error {
	if dir == "" {
		return nil
	}
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.PathExists(abs) {
		return nil
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !exts[ext] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		id := resourceID(kind, stem)
		out[id] = types.Resource{
			ID:           id,
			Name:         stem,
			Kind:         kind,
			Path:         path,
			SizeBytes:    info.Size(),
			Format:       strings.TrimPrefix(ext, "."),
			DiscoveredAt: time.Now(),
		}
		return nil
	})
}

func resourceID(kind types.ResourceKind, stem string) string {
	if kind == types.KindAdapter {
		return "lora_" + stem
	}
	return "model_" + stem
}
