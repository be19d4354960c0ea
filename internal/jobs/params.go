package jobs

import (
	"fmt"
	"strings"

	"stylerd/pkg/types"
)

// Defaults applied to unset generation parameters.
const (
	defaultStrength = 0.8
	defaultCFGScale = 7.5
	defaultSteps    = 20
	defaultSampler  = "Euler a"

	maxPromptLen = 1000
	maxSeed      = int64(1)<<32 - 1
)

var validSamplers = map[string]bool{
	"Euler a":  true,
	"Euler":    true,
	"LMS":      true,
	"Heun":     true,
	"DPM2":     true,
	"DPM2 a":   true,
	"DPM++ 2M": true,
}

// ValidateParams applies defaults and checks ranges, mutating p in place.
// Builds the full list of problems before failing so a client sees them all
// at once.
func ValidateParams(p *types.GenerateParams) error {
	var errs []string

	p.Prompt = strings.TrimSpace(p.Prompt)
	if p.Prompt == "" {
		errs = append(errs, "prompt is required")
	} else if len(p.Prompt) > maxPromptLen {
		errs = append(errs, fmt.Sprintf("prompt exceeds %d characters", maxPromptLen))
	}
	p.NegativePrompt = strings.TrimSpace(p.NegativePrompt)
	if len(p.NegativePrompt) > maxPromptLen {
		errs = append(errs, fmt.Sprintf("negative prompt exceeds %d characters", maxPromptLen))
	}

	p.InputImage = strings.TrimSpace(p.InputImage)
	if p.InputImage == "" {
		errs = append(errs, "input_image is required")
	}

	if p.Strength == 0 {
		p.Strength = defaultStrength
	}
	if p.Strength < 0 || p.Strength > 1 {
		errs = append(errs, "strength must be between 0.0 and 1.0")
	}

	if p.CFGScale == 0 {
		p.CFGScale = defaultCFGScale
	}
	if p.CFGScale < 1 || p.CFGScale > 30 {
		errs = append(errs, "cfg_scale must be between 1.0 and 30.0")
	}

	if p.Steps == 0 {
		p.Steps = defaultSteps
	}
	if p.Steps < 1 || p.Steps > 150 {
		errs = append(errs, "steps must be between 1 and 150")
	}

	if p.Sampler == "" {
		p.Sampler = defaultSampler
	}
	if !validSamplers[p.Sampler] {
		errs = append(errs, "unsupported sampler: "+p.Sampler)
	}

	if p.Seed != nil && (*p.Seed < 0 || *p.Seed > maxSeed) {
		errs = append(errs, fmt.Sprintf("seed must be between 0 and %d", maxSeed))
	}

	if len(errs) > 0 {
		return ErrValidation(strings.Join(errs, "; "))
	}
	return nil
}
