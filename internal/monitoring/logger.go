package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// ProfileLogf logs through Logf with the profile identifier as a prefix so
// interleaved output from concurrent workers stays attributable.
func ProfileLogf(profileID, format string, v ...interface{}) {
	args := make([]interface{}, 0, len(v)+1)
	args = append(args, profileID)
	args = append(args, v...)
	Logf("[profile %s] "+format, args...)
}
