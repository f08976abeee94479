package logging

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		inp      string
		expected Level
	}{
		{"debug", DEBUG},
		{"Debug", DEBUG},
		{"info", INFO},
		{"INFO", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.inp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("notice")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLevelAsZap(t *testing.T) {
	test.That(t, DEBUG.AsZap(), test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, INFO.AsZap(), test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, WARN.AsZap(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, ERROR.AsZap(), test.ShouldEqual, zapcore.ErrorLevel)
}

func TestLevelJSONRoundTrip(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		data, err := json.Marshal(level)
		test.That(t, err, test.ShouldBeNil)

		var decoded Level
		test.That(t, json.Unmarshal(data, &decoded), test.ShouldBeNil)
		test.That(t, decoded, test.ShouldEqual, level)
	}

	var decoded Level
	test.That(t, json.Unmarshal([]byte(`"verbose"`), &decoded), test.ShouldNotBeNil)
}

func TestAtomicLevel(t *testing.T) {
	level := NewAtomicLevelAt(INFO)
	test.That(t, level.Get(), test.ShouldEqual, INFO)

	level.Set(DEBUG)
	test.That(t, level.Get(), test.ShouldEqual, DEBUG)
}
