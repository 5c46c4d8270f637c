package config

import (
	"fmt"
	"os"
)

// Template returns the starter controller config document.
func Template() string {
	return controllerTemplate
}

// WriteTemplate writes the starter config to path. An existing file is only
// replaced when overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(controllerTemplate), 0o600)
}

const controllerTemplate = `name = "irrigctl"
schedule_path = "./schedule.yaml"
logbook_path = "./logbook.yaml"
tick_seconds = 30

[[valves]]
name = "front-lawn"
pin = 17

[[valves]]
name = "back-lawn"
pin = 27
`
