package server

import (
	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
)

// ControllersFromMetadata returns the declared controllers, most recently
// declared first
func ControllersFromMetadata(reg *metadata.Registry) []metadata.ControllerMetadata {
	return reg.Controllers()
}

// ControllersFromContainer returns the controller types bound under
// TypeController. With force set, an empty result is an error.
func ControllersFromContainer(c *di.Container, force bool) ([]metadata.Target, error) {
	var out []metadata.Target
	seen := make(map[metadata.Target]bool)
	for _, b := range c.Bindings(TypeController) {
		t := b.Type()
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 && force {
		return nil, axonerrors.NoControllerFound()
	}
	return out, nil
}
