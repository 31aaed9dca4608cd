package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose int
		quiet   int
		want    zapcore.Level
	}{
		{"default is warn", 0, 0, zapcore.WarnLevel},
		{"-v is info", 1, 0, zapcore.InfoLevel},
		{"-vv is debug", 2, 0, zapcore.DebugLevel},
		{"-vvv stays debug", 3, 0, zapcore.DebugLevel},
		{"-q is error", 0, 1, zapcore.ErrorLevel},
		{"-qq stays error", 0, 2, zapcore.ErrorLevel},
		{"-v -q cancel out", 1, 1, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerbosityToLevel(tt.verbose, tt.quiet))
		})
	}
}
