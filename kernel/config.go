package kernel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the boot configuration.  Zero fields take defaults; the
// demo binary loads it from YAML, tests build it directly.
type Config struct {
	// TimerHz is the interval-timer frequency in interrupts per
	// second.  The 8254 divisor math wants 19..1000.
	TimerHz int64 `yaml:"timer_hz"`
	// TimeSlice is the quantum: ticks a thread may run before a
	// preemption request is raised.
	TimeSlice int `yaml:"time_slice"`
	// MLFQS selects the multilevel feedback queue scheduler.  The
	// mode is recognized but not implemented; the kernel warns and
	// schedules round robin.
	MLFQS bool `yaml:"mlfqs"`
	// PageFrames is the number of thread pages (one per thread,
	// control block plus stack).  Must be a multiple of 64.
	PageFrames int `yaml:"page_frames"`
	// SleepRecords sizes the timer's sleep-record pool.  Must be a
	// multiple of 64.
	SleepRecords int `yaml:"sleep_records"`
	// LogLevel is one of quiet, error, warn, info, debug.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration the kernel boots with when
// nothing is specified.
func DefaultConfig() Config {
	return Config{
		TimerHz:      100,
		TimeSlice:    4,
		PageFrames:   64,
		SleepRecords: 64,
		LogLevel:     "info",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the ranges the hardware model and the pools impose.
func (c *Config) Validate() error {
	if c.TimerHz < 19 {
		return fmt.Errorf("timer_hz %d too low: the 8254 needs at least 19", c.TimerHz)
	}
	if c.TimerHz > 1000 {
		return fmt.Errorf("timer_hz %d too high: at most 1000", c.TimerHz)
	}
	if c.TimeSlice < 1 {
		return fmt.Errorf("time_slice must be at least 1, got %d", c.TimeSlice)
	}
	if c.PageFrames <= 0 || c.PageFrames%64 != 0 {
		return fmt.Errorf("page_frames must be a positive multiple of 64, got %d", c.PageFrames)
	}
	if c.SleepRecords <= 0 || c.SleepRecords%64 != 0 {
		return fmt.Errorf("sleep_records must be a positive multiple of 64, got %d", c.SleepRecords)
	}
	return nil
}
