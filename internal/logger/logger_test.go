package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Modes(t *testing.T) {
	for _, dev := range []bool{true, false} {
		log, err := New(Options{Development: dev})
		if err != nil {
			t.Fatalf("development=%v: %v", dev, err)
		}
		if log == nil {
			t.Fatalf("development=%v: expected non-nil logger", dev)
		}
		log.Info("test message")
	}
}

func TestNew_DevelopmentEnablesDebug(t *testing.T) {
	log := Must(Options{Development: true})
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug enabled in development mode")
	}
	prod := Must(Options{})
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug disabled in production mode")
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New(Options{Level: "warn"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn to be enabled")
	}

	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMust_PanicsOnBadLevel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Must(Options{Level: "loud"})
}
