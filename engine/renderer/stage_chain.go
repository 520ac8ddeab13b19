package renderer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer/material"
)

// stageChain is the implementation of the StageChain interface.
type stageChain struct {
	mu     *sync.Mutex
	stages []material.Material
	// release frees the GPU state derived from a removed stage.
	release func(material.Material)
}

// StageChain is the ordered list of post-processing stages run after the main pass.
//
// Stage i reads the color output of stage i-1, or of the main pass for the first stage. The output of the
// last stage is presented. Removing a stage releases the GPU resources derived from it.
type StageChain interface {
	// Stages returns a copy of the stages in execution order.
	//
	// Returns:
	//   - []material.Material: the stages
	Stages() []material.Material

	// Len returns the number of stages.
	//
	// Returns:
	//   - int: the stage count
	Len() int

	// AddStage appends a stage to the end of the chain.
	//
	// Parameters:
	//   - m: a post-process material
	//
	// Returns:
	//   - error: ErrUnsupportedLayout for a scene material, ErrAlreadyDestroyed for a destroyed one
	AddStage(m material.Material) error

	// Clear removes every stage, releasing each removed stage's GPU resources.
	Clear()
}

var _ StageChain = &stageChain{}

// newStageChain creates an empty chain.
//
// Parameters:
//   - release: called with every removed stage; may be nil
//
// Returns:
//   - *stageChain: the chain
func newStageChain(release func(material.Material)) *stageChain {
	return &stageChain{
		mu:      &sync.Mutex{},
		release: release,
	}
}

func (c *stageChain) Stages() []material.Material {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.stages)
}

func (c *stageChain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stages)
}

func (c *stageChain) AddStage(m material.Material) error {
	if err := validateStage(m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, m)
	common.Logger().Info("render stage added", "label", m.Label(), "stages", len(c.stages))
	return nil
}

func (c *stageChain) Clear() {
	c.mu.Lock()
	removed := c.stages
	c.stages = nil
	c.mu.Unlock()

	c.releaseAll(removed, nil)
	if len(removed) > 0 {
		common.Logger().Info("render stages cleared", "removed", len(removed))
	}
}

// set replaces the chain with stages. Stages that remain in the chain keep their GPU resources.
//
// Parameters:
//   - stages: the new chain
//
// Returns:
//   - error: the first validation error; the chain is unchanged on error
func (c *stageChain) set(stages []material.Material) error {
	for _, m := range stages {
		if err := validateStage(m); err != nil {
			return err
		}
	}
	c.mu.Lock()
	removed := c.stages
	c.stages = slices.Clone(stages)
	c.mu.Unlock()

	c.releaseAll(removed, stages)
	common.Logger().Info("render stages set", "stages", len(stages))
	return nil
}

// releaseAll releases every material of removed that is not in kept, once.
func (c *stageChain) releaseAll(removed, kept []material.Material) {
	if c.release == nil {
		return
	}
	var done []material.Material
	for _, m := range removed {
		base := m.Base()
		if slices.ContainsFunc(kept, func(k material.Material) bool { return k.Base() == base }) || slices.Contains(done, base) {
			continue
		}
		done = append(done, base)
		c.release(base)
	}
}

func validateStage(m material.Material) error {
	if m == nil {
		return fmt.Errorf("render stage is nil: %w", common.ErrUnsupportedLayout)
	}
	if m.Destroyed() {
		return fmt.Errorf("render stage %s: %w", m.Label(), common.ErrAlreadyDestroyed)
	}
	if m.Stage() != material.StagePostProcess {
		return fmt.Errorf("render stage %s is not a post-process material: %w", m.Label(), common.ErrUnsupportedLayout)
	}
	return nil
}
