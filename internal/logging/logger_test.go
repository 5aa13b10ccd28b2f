package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zap.ErrorLevel) {
		t.Error("default logger should be silent")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zap.WarnLevel) {
		t.Error("warn should be enabled")
	}
	if GetLogger().Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}

func TestInitialize_UnknownLevel(t *testing.T) {
	if err := Initialize("verbose"); err == nil {
		t.Error("Initialize(\"verbose\") error = nil, want error")
	}
}

func TestLogDatagram(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDatagram("received", "10.0.0.5:11411", []byte("{\"name\":\"duck1\"}\x00"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ascii"] != "{\"name\":\"duck1\"}." {
		t.Errorf("ascii = %q", fields["ascii"])
	}
	if fields["length"] != int64(17) {
		t.Errorf("length = %v, want 17", fields["length"])
	}
}

func TestLogDatagram_SkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDatagram("sent", "10.0.0.5:11411", []byte("x"))

	if logs.Len() != 0 {
		t.Errorf("got %d entries, want 0", logs.Len())
	}
}

func TestHexDump_Truncates(t *testing.T) {
	data := make([]byte, 300)
	got := hexDump(data)
	if len(got) != maxDump*2+3 {
		t.Errorf("len(hexDump) = %d, want %d", len(got), maxDump*2+3)
	}
}

func TestLevelHelpers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("d")
	Info("i")
	Warn("w")
	Error("e", zap.String("command", "duckie scan"))

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	last := entries[3]
	if last.Level != zap.ErrorLevel || last.Message != "e" {
		t.Errorf("last entry = %v %q, want error \"e\"", last.Level, last.Message)
	}
	if last.ContextMap()["command"] != "duckie scan" {
		t.Errorf("command field = %v", last.ContextMap()["command"])
	}
}
