package address

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex validates a single project or task name.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidName checks that name can be used as a project or task name.
func ValidName(name string) error {
	if !segmentRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	if name == "." || name == ".." || name == "-" {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

// Parse creates an Address from its textual representation.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("address cannot be empty")
	}

	normalized := strings.ReplaceAll(raw, "/", Separator)
	var addr Address
	if strings.HasPrefix(normalized, Separator) {
		addr.Absolute = true
		normalized = normalized[len(Separator):]
	}

	segments := strings.Split(normalized, Separator)
	for i, segment := range segments {
		if segment == "" {
			return Address{}, fmt.Errorf("address %q contains an empty segment", raw)
		}
		if err := ValidName(segment); err != nil {
			return Address{}, fmt.Errorf("address %q: %w", raw, err)
		}
		if i == len(segments)-1 {
			addr.Task = segment
		} else {
			addr.Project = append(addr.Project, segment)
		}
	}

	return addr, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static tables.
func MustParse(raw string) Address {
	addr, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return addr
}
