package valve

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// Line is one GPIO line driven as an output. Production lines sit on sysfs;
// tests substitute a fake through Valves' OpenFunc.
type Line interface {
	SetValue(v int) error
	Value() (int, error)
	Close() error
}

// OpenFunc exports a pin and configures it as an output line.
type OpenFunc func(pin uint64) (Line, error)

const (
	directionRetries    = 10
	directionRetryDelay = 10 * time.Millisecond
)

// gpioRoot is a variable so tests can point the sysfs tree at a temp dir.
var gpioRoot = "/sys/class/gpio"

type sysfsLine struct {
	pin uint64
}

// openSysfsLine exports the pin and sets it as an output. An EBUSY answer
// from the export file means the pin is already exported; the line is
// reused.
func openSysfsLine(pin uint64) (Line, error) {
	num := strconv.FormatUint(pin, 10)
	if err := writeAttr(filepath.Join(gpioRoot, "export"), num); err != nil {
		if !errors.Is(err, syscall.EBUSY) {
			return nil, fmt.Errorf("valve: export gpio%d: %w", pin, err)
		}
	}
	l := &sysfsLine{pin: pin}
	if err := l.trySetDirection("out"); err != nil {
		return nil, err
	}
	return l, nil
}

// udev applies permissions to freshly exported lines asynchronously, so the
// first direction write can be denied. Retry briefly before giving up.
func (l *sysfsLine) trySetDirection(dir string) error {
	var err error
	for i := 0; i < directionRetries; i++ {
		if err = writeAttr(l.attr("direction"), dir); err == nil {
			return nil
		}
		time.Sleep(directionRetryDelay)
	}
	return fmt.Errorf("valve: set gpio%d direction: %w", l.pin, err)
}

func (l *sysfsLine) SetValue(v int) error {
	return writeAttr(l.attr("value"), strconv.Itoa(v))
}

func (l *sysfsLine) Value() (int, error) {
	data, err := os.ReadFile(l.attr("value"))
	if err != nil {
		return 0, fmt.Errorf("valve: read gpio%d value: %w", l.pin, err)
	}
	v, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return 0, fmt.Errorf("valve: parse gpio%d value: %w", l.pin, err)
	}
	return v, nil
}

// Close restores the line to an input and unexports it, releasing the pin
// for other users.
func (l *sysfsLine) Close() error {
	dirErr := writeAttr(l.attr("direction"), "in")
	num := strconv.FormatUint(l.pin, 10)
	unexportErr := writeAttr(filepath.Join(gpioRoot, "unexport"), num)
	return errors.Join(dirErr, unexportErr)
}

func (l *sysfsLine) attr(name string) string {
	return filepath.Join(gpioRoot, fmt.Sprintf("gpio%d", l.pin), name)
}

func writeAttr(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
