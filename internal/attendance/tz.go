package attendance

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database so school timezones resolve on minimal images.
	_ "time/tzdata"
)

// LoadLocation resolves an IANA zone name, falling back to fallback when the
// name is empty.
func LoadLocation(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
