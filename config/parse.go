package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ErrMissingField is returned by Parse when web_interval or a motor or
// block id is absent or zero (a missing interval is reported by
// errNoInterval instead), following config.go's plain errors.New style for config
// validation.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("config: invalid or missing %q", e.Field)
}

// ErrDuplicateID is returned when two motors or blocks share an ID.
type ErrDuplicateID struct {
	ID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("config: duplicate id %q", e.ID)
}

var errNoInterval = errors.New("config: invalid `interval`, must be > 0")

// Parse unmarshals data into a Config and validates required fields,
// mirroring config.go's graphConfig.Parse (yaml.Unmarshal, then check the
// fields a graph can't run without).
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Interval <= 0 {
		return nil, errNoInterval
	}
	if c.WebInterval <= 0 {
		return nil, &ErrMissingField{Field: "web_interval"}
	}

	seen := make(map[string]bool)
	for _, m := range c.Motors {
		if m.ID == "" {
			return nil, &ErrMissingField{Field: "motors[].id"}
		}
		if seen[m.ID] {
			return nil, &ErrDuplicateID{ID: m.ID}
		}
		seen[m.ID] = true
	}
	for _, b := range c.Blocks {
		if b.ID == "" {
			return nil, &ErrMissingField{Field: "blocks[].id"}
		}
		if seen[b.ID] {
			return nil, &ErrDuplicateID{ID: b.ID}
		}
		seen[b.ID] = true
	}
	return &c, nil
}

// ParseFile reads filename and parses it as a Config.
func ParseFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}
	return Parse(data)
}
