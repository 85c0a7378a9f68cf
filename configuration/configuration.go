package configuration

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/buildkite/gcstool"
	"github.com/buildkite/gcstool/internal/template"
	"gopkg.in/yaml.v3"
)

// Direction is the way a configured transfer copies data.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// ModeAuto treats a remote path ending in "/" as a prefix listing.
const ModeAuto = "auto"

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// File is the layout of a configuration file. Top level keys other than
// transfers are consumed as flag defaults by the CLI.
type File struct {
	Bucket      string     `yaml:"bucket" json:"bucket"`
	Credentials string     `yaml:"credentials" json:"credentials"`
	BucketURL   string     `yaml:"bucket-url" json:"bucket-url"`
	Transfers   []Transfer `yaml:"transfers" json:"transfers"`
}

// Transfer is one named upload or download.
type Transfer struct {
	ID         string    `yaml:"id" json:"id"`
	Direction  Direction `yaml:"direction" json:"direction"`
	LocalPath  string    `yaml:"local_path" json:"local_path"`
	RemotePath string    `yaml:"remote_path" json:"remote_path"`

	// Mode is auto, object or prefix. Only used by downloads, empty means auto.
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Load reads a YAML (or JSON, which is valid YAML) configuration file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	return file, nil
}

/*
ExpandTransfers resolves templates in LocalPath and RemotePath of every
transfer and validates the result. Uses the OS environment for template
expansion.
*/
func ExpandTransfers(transfers []Transfer) ([]Transfer, error) {
	return expandTransfers(transfers, template.Expand)
}

/*
ExpandTransfersWithEnv expands transfers using a provided environment map
instead of reading from the OS environment.
*/
func ExpandTransfersWithEnv(transfers []Transfer, env map[string]string) ([]Transfer, error) {
	return expandTransfers(transfers, func(id, text string) (string, error) {
		return template.ExpandWithEnv(id, text, env)
	})
}

func expandTransfers(transfers []Transfer, expand func(id, text string) (string, error)) ([]Transfer, error) {
	expanded := make([]Transfer, len(transfers))
	seen := make(map[string]bool, len(transfers))

	for i, transfer := range transfers {
		var err error

		transfer.LocalPath, err = expand(transfer.ID, transfer.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand local_path of %s: %w", transfer.ID, err)
		}

		transfer.RemotePath, err = expand(transfer.ID, transfer.RemotePath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand remote_path of %s: %w", transfer.ID, err)
		}

		if err := transfer.Validate(); err != nil {
			return nil, fmt.Errorf("transfer validation failed for ID %s: %w", transfer.ID, err)
		}

		if seen[transfer.ID] {
			return nil, fmt.Errorf("duplicate transfer ID %s", transfer.ID)
		}
		seen[transfer.ID] = true

		expanded[i] = transfer
	}

	return expanded, nil
}

// Validate checks that the transfer can be executed.
func (t Transfer) Validate() error {
	var errs []error

	if strings.TrimSpace(t.ID) == "" {
		errs = append(errs, errors.New("id cannot be empty"))
	} else if !idPattern.MatchString(t.ID) {
		errs = append(errs, fmt.Errorf("id %q can only contain letters, numbers, and underscores", t.ID))
	}

	switch t.Direction {
	case DirectionUpload, DirectionDownload:
	default:
		errs = append(errs, fmt.Errorf("direction %q must be upload or download", t.Direction))
	}

	if strings.TrimSpace(t.LocalPath) == "" {
		errs = append(errs, errors.New("local_path cannot be empty"))
	}

	if t.Direction == DirectionDownload && strings.TrimSpace(t.RemotePath) == "" && t.Mode != "prefix" {
		errs = append(errs, errors.New("remote_path cannot be empty for a single object download"))
	}

	if _, err := t.ResolveMode(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ResolveMode returns the download mode, applying the trailing "/" convention
// for auto.
func (t Transfer) ResolveMode() (gcstool.Mode, error) {
	if t.Mode == "" || t.Mode == ModeAuto {
		return gcstool.InferMode(t.RemotePath), nil
	}

	return gcstool.ParseMode(t.Mode)
}
