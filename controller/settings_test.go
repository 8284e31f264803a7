package controller

import (
	"testing"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/being-run/being/canopen"
	"github.com/being-run/being/homing"
)

func TestMergeSettingsUserOverridesWin(t *testing.T) {
	defaults := map[string]interface{}{"6073/0": 1000, "6075/0": 2000}
	overrides := map[string]interface{}{"6073/0": 500}
	got := MergeSettings(defaults, overrides)
	if got["6073/0"] != 500 {
		t.Fatalf("override should win, got %v", got["6073/0"])
	}
	if got["6075/0"] != 2000 {
		t.Fatalf("default should survive when not overridden, got %v", got["6075/0"])
	}
}

func TestApplySettingsWritesKnownKeys(t *testing.T) {
	backend := newFakeBackend()
	node := canopen.NewNode(1, backend, nil)
	defaults := map[string]interface{}{"6073/0": int32(1500)}

	if err := ApplySettings(node, MCLM3002ObjectDictionary, defaults, nil); err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	got := le32(backend.writes[canopen.IndexCurrentLimit])
	if got != 1500 {
		t.Fatalf("got %d, want 1500", got)
	}
}

func TestApplySettingsUnknownKeyFails(t *testing.T) {
	backend := newFakeBackend()
	node := canopen.NewNode(1, backend, nil)
	defaults := map[string]interface{}{"9999/0": 1}

	err := ApplySettings(node, MCLM3002ObjectDictionary, defaults, nil)
	if err == nil {
		t.Fatalf("expected an error for an unknown key")
	}
	merr, ok := err.(*multierror.Error)
	if !ok || len(merr.Errors) != 1 {
		t.Fatalf("expected a single-error multierror, got %v", err)
	}
	if _, ok := merr.Errors[0].(*ErrUnknownSetting); !ok {
		t.Fatalf("expected *ErrUnknownSetting, got %T", merr.Errors[0])
	}
}

func TestMCLM3002ResolveHomingPicksCrudeForHardStopMethods(t *testing.T) {
	backend := newFakeBackend()
	node := canopen.NewNode(1, backend, nil)

	crude := MCLM3002ResolveHoming(node, -2, 1000, 5, 100, 800)
	if _, ok := crude.(*homing.CrudeHoming); !ok {
		t.Fatalf("method -2 should resolve to *homing.CrudeHoming, got %T", crude)
	}

	standard := MCLM3002ResolveHoming(node, 17, 1000, 5, 100, 800)
	if _, ok := standard.(*homing.CiA402Homing); !ok {
		t.Fatalf("method 17 should resolve to *homing.CiA402Homing, got %T", standard)
	}
}

func TestSetPolarityForwardAndReverse(t *testing.T) {
	backend := newFakeBackend()
	node := canopen.NewNode(1, backend, nil)

	if err := SetPolarity(node, 1); err != nil {
		t.Fatalf("SetPolarity: %v", err)
	}
	if backend.writes[canopen.IndexPolarity][0] != 0 {
		t.Fatalf("forward should write 0, got %v", backend.writes[canopen.IndexPolarity])
	}

	if err := SetPolarity(node, -1); err != nil {
		t.Fatalf("SetPolarity: %v", err)
	}
	if backend.writes[canopen.IndexPolarity][0] != (1<<6 | 1<<7) {
		t.Fatalf("reverse should set bits 6|7, got %#x", backend.writes[canopen.IndexPolarity][0])
	}
}

func TestSubstituteHomingMethod(t *testing.T) {
	if got := SubstituteHomingMethod(35); got != 37 {
		t.Fatalf("35 should substitute to 37, got %d", got)
	}
	if got := SubstituteHomingMethod(17); got != 17 {
		t.Fatalf("17 should pass through unchanged, got %d", got)
	}
}
