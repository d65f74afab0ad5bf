package registry

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

var pluginIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*(\.[a-z][a-z0-9_-]*)*$`)

// ValidateRegistry checks every registration for a usable identifier and a
// non-nil configuration function.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, id := range r.IDs() {
		plugin := r.plugins[id]
		if !pluginIDRegex.MatchString(id) {
			errs = append(errs, fmt.Sprintf("plugin '%s': identifier must be lowercase dot-separated words", id))
		}
		if plugin == nil || plugin.Fn == nil {
			errs = append(errs, fmt.Sprintf("plugin '%s': no configuration function", id))
			continue
		}
		if plugin.Description == "" {
			logger.Warn("Plugin has no description.", "plugin", id)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
