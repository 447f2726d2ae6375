package config

import "os"

// ExpandEnv expands ${VAR}/$VAR references in YAML bytes before parsing,
// exactly as the teacher's pkg/config/envexpand.go does — so provider
// API key environment variable names can be templated without being
// written into the file itself.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
