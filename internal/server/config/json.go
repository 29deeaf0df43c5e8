package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/emoticons/internal/flagx"
)

// parseJson overlays values from a JSON config file onto config.
//
// The file path comes from the -c or -config command-line flags; when
// neither is given nothing is loaded. Keys missing from the file keep their
// current values. An unreadable file or invalid JSON panics, as the server
// cannot start with a half-applied configuration.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	s := settingsFrom(config)
	if err := json.Unmarshal(file, &s); err != nil {
		panic(err)
	}
	s.apply(config)
}
