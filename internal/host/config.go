package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/olivine-db/lsmtable/internal/lsm"
)

// Config holds the settings a Host needs to build and flush Trees: how big a
// single commit may be, how many commits accumulate before a mandatory
// flush, the downstream data-block geometry a Tree's capacity is checked
// against, and where flushed segments are written.
//
// Config files are JSONC (JSON with comments and trailing commas):
// standardize with hujson, then unmarshal as plain JSON.
type Config struct {
	SegmentDir        string `json:"segment_dir"`
	CommitCountMax    int    `json:"commit_count_max"`
	BatchMultiple     int    `json:"batch_multiple"`
	DataValueCountMax int    `json:"data_value_count_max"`
	DataBlockCountMax int    `json:"data_block_count_max"`
}

// errConfigInvalid wraps all validation failures in LoadConfig/Validate.
var errConfigInvalid = errors.New("host: invalid config")

// DefaultConfig returns conservative defaults suitable for the CLI tools.
func DefaultConfig() Config {
	return Config{
		SegmentDir:        ".lsmtable",
		CommitCountMax:    1024,
		BatchMultiple:     4,
		DataValueCountMax: 8192,
		DataBlockCountMax: 64,
	}
}

// Layout returns the lsm.DataLayout implied by this config.
func (c Config) Layout() lsm.DataLayout {
	return lsm.DataLayout{
		ValueCountMax:     uint32(c.DataValueCountMax),
		DataBlockCountMax: uint32(c.DataBlockCountMax),
	}
}

// Validate checks that every field is in range, returning errConfigInvalid
// wrapped with specifics on the first problem found.
func (c Config) Validate() error {
	if c.SegmentDir == "" {
		return fmt.Errorf("%w: segment_dir must not be empty", errConfigInvalid)
	}

	if c.CommitCountMax <= 0 {
		return fmt.Errorf("%w: commit_count_max must be > 0, got %d", errConfigInvalid, c.CommitCountMax)
	}

	if c.BatchMultiple <= 0 {
		return fmt.Errorf("%w: batch_multiple must be > 0, got %d", errConfigInvalid, c.BatchMultiple)
	}

	if c.DataValueCountMax <= 0 {
		return fmt.Errorf("%w: data_value_count_max must be > 0, got %d", errConfigInvalid, c.DataValueCountMax)
	}

	if c.DataBlockCountMax <= 0 {
		return fmt.Errorf("%w: data_block_count_max must be > 0, got %d", errConfigInvalid, c.DataBlockCountMax)
	}

	valueCountMax := lsm.ValueCountMax(c.CommitCountMax, c.BatchMultiple)
	if err := lsm.CheckCapacity(valueCountMax, c.Layout()); err != nil {
		return fmt.Errorf("%w: %v", errConfigInvalid, err)
	}

	return nil
}

// LoadConfig reads a JSONC config file at path, falling back to
// DefaultConfig for any field the file omits, and validates the result.
//
// A missing file is not an error: DefaultConfig is returned as-is, so a host
// can be started without requiring a config file to exist first.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("host: reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("host: %s is not valid JSONC: %w", path, err)
	}

	// Unmarshal onto the defaults so omitted fields keep their default
	// value instead of zeroing out.
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("host: %s is not valid JSON after standardizing: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("host: %s: %w", path, err)
	}

	return cfg, nil
}
