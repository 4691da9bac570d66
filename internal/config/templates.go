package config

import (
	"fmt"
	"os"
)

func Template() string { return engineTemplate }

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(engineTemplate), 0o600)
}

const engineTemplate = `# byte order for fields and schemas that do not declare one
default_endian = "little"

# trailing-data policy for schemas that do not declare one: error, warn, ignore
trailing = "error"

# compiled schema files kept in memory
cache_size = 64

# schema files checked at startup
schemas = []

[log]
level = "info"
timestamp = false
no_color = false
`
