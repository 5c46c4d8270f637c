package calendar

import (
	"slices"
	"strings"
)

// configVersion is written into every synced schedule document.
const configVersion = "0.1"

// ValveEntry is the persisted name/pin pair for one configured valve.
type ValveEntry struct {
	Name string `yaml:"name"`
	Pin  uint64 `yaml:"pin"`
}

// configFile is the on-disk shape of the schedule store. Schedules stay
// sorted by name so the document diffs cleanly and lookups can binary
// search.
type configFile struct {
	Version   string       `yaml:"version"`
	Valves    []ValveEntry `yaml:"valves"`
	Schedules []Schedule   `yaml:"schedules"`
}

func newConfigFile(version string) configFile {
	return configFile{Version: version}
}

func compareByName(s Schedule, name string) int {
	return strings.Compare(s.Name, name)
}

// upsertSchedule inserts the schedule at its sorted position, or replaces
// the existing entry with the same name.
func (c *configFile) upsertSchedule(s Schedule) {
	idx, found := slices.BinarySearchFunc(c.Schedules, s.Name, compareByName)
	if found {
		c.Schedules[idx] = s
		return
	}
	c.Schedules = slices.Insert(c.Schedules, idx, s)
}

// removeSchedule deletes the schedule by name if it exists.
func (c *configFile) removeSchedule(name string) {
	idx, found := slices.BinarySearchFunc(c.Schedules, name, compareByName)
	if !found {
		return
	}
	c.Schedules = slices.Delete(c.Schedules, idx, idx+1)
}

func (c *configFile) findSchedule(name string) (Schedule, bool) {
	idx, found := slices.BinarySearchFunc(c.Schedules, name, compareByName)
	if !found {
		return Schedule{}, false
	}
	return c.Schedules[idx], true
}
