package logger

import "go.uber.org/zap/zapcore"

// Verbosity mapping for the -v / -q count flags.
//
// Warnings are the default. Each -v lowers the threshold one step
// (warn -> info -> debug); each -q raises it (warn -> error).
//
//	unfurl archive.tar.gz        # warnings and errors
//	unfurl -v archive.tar.gz     # + progress messages
//	unfurl -vv archive.tar.gz    # + pipeline debugging
//	unfurl -q archive.tar.gz     # errors only
func VerbosityToLevel(verbose, quiet int) zapcore.Level {
	step := verbose - quiet
	switch {
	case step >= 2:
		return zapcore.DebugLevel
	case step == 1:
		return zapcore.InfoLevel
	case step == 0:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
