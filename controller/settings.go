package controller

import (
	"fmt"
	"sort"

	multierror "github.com/hashicorp/go-multierror"
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
)

// ErrUnknownSetting is returned when a settings key path has no entry in
// the controller's ObjectDictionary.
type ErrUnknownSetting struct {
	Key string
}

func (e *ErrUnknownSetting) Error() string {
	return fmt.Sprintf("controller: unknown setting key %q", e.Key)
}

// ObjectEntry describes where a "Object/Subobject" key path lives in the
// CiA-402 object dictionary, and how wide the value is on the wire.
type ObjectEntry struct {
	Index    uint16
	SubIndex uint8
	// Width is the SDO payload size in bytes: 1, 2, or 4.
	Width int
}

// ObjectDictionary maps the key paths a vendor specialization is willing
// to accept settings for to their wire location.
type ObjectDictionary map[string]ObjectEntry

// MergeSettings shallow-merges overrides onto defaults, per-key, with the
// override winning -- grounded on engine/metaparams.go's
// UnmarshalYAML-over-defaults pattern, generalized from a fixed struct to
// an open key/value map since settings here are per-vendor, not fixed.
func MergeSettings(defaults, overrides map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// encodeSetting converts a Go value into a little-endian payload of the
// given width.
func encodeSetting(v interface{}, width int) ([]byte, error) {
	var u uint64
	switch n := v.(type) {
	case int:
		u = uint64(int64(n))
	case int8:
		u = uint64(int64(n))
	case int16:
		u = uint64(int64(n))
	case int32:
		u = uint64(int64(n))
	case int64:
		u = uint64(n)
	case uint:
		u = uint64(n)
	case uint8:
		u = uint64(n)
	case uint16:
		u = uint64(n)
	case uint32:
		u = uint64(n)
	case uint64:
		u = n
	case bool:
		if n {
			u = 1
		}
	default:
		return nil, errwrap.Errorf("controller: setting value %v (%T) has no integer encoding", v, v)
	}
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(u >> (8 * uint(i)))
	}
	return b, nil
}

// ApplySettings merges defaults with overrides and writes each resulting
// "Object/Subobject" entry via SDO, in sorted key order for determinism.
// Keys absent from dict fail with ErrUnknownSetting; all per-key failures
// are aggregated into a single multierror rather than stopping at the
// first one, so a caller sees every bad key path in one pass.
func ApplySettings(node *canopen.Node, dict ObjectDictionary, defaults, overrides map[string]interface{}) error {
	settings := MergeSettings(defaults, overrides)

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result *multierror.Error
	for _, key := range keys {
		entry, ok := dict[key]
		if !ok {
			result = multierror.Append(result, &ErrUnknownSetting{Key: key})
			continue
		}
		data, err := encodeSetting(settings[key], entry.Width)
		if err != nil {
			result = multierror.Append(result, errwrap.Wrapf(err, "controller: encode setting %q", key))
			continue
		}
		if err := node.Backend.SDOWrite(node.NodeID, entry.Index, entry.SubIndex, data); err != nil {
			result = multierror.Append(result, errwrap.Wrapf(err, "controller: write setting %q", key))
		}
	}
	return result.ErrorOrNil()
}
