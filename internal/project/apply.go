package project

import (
	"errors"
	"fmt"
	"slices"
)

// Apply invokes the configuration logic of pluginID against p. Applying a
// plugin that was already applied to p is a no-op.
func (p *Project) Apply(pluginID string) error {
	if p.applied[pluginID] {
		return nil
	}
	if p.state.frozen {
		return p.wrap(pluginID, ErrFrozen)
	}
	if p.state.resolver == nil {
		return p.wrap(pluginID, fmt.Errorf("no plugin resolver configured"))
	}

	fn, err := p.state.resolver.Resolve(pluginID)
	if err != nil {
		return p.wrap(pluginID, err)
	}

	// Marked before invoking so that plugins applying each other terminate.
	p.applied[pluginID] = true
	p.plugins = append(p.plugins, pluginID)

	if err := fn(p); err != nil {
		// A failed plugin is not applied; a later Apply retries it.
		delete(p.applied, pluginID)
		if i := slices.Index(p.plugins, pluginID); i >= 0 {
			p.plugins = slices.Delete(p.plugins, i, i+1)
		}
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return err
		}
		return p.wrap(pluginID, err)
	}
	return nil
}

// Applied reports whether pluginID has been applied to p.
func (p *Project) Applied(pluginID string) bool {
	return p.applied[pluginID]
}
