// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm prompts the user for yes/no confirmation.
// Returns ErrAborted if the user presses Ctrl+C.
func Confirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, defaultStr),
		IsConfirm: true,
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// promptui returns ErrAbort for "n"
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if result == "" {
			return defaultYes, nil
		}
		return false, err
	}

	result = strings.ToLower(result)
	return result == "y" || result == "yes", nil
}

// ConfirmWithForce returns true immediately if force is true,
// otherwise prompts for confirmation.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// ValidateEndpoint accepts an IPv4 ip:port a seeder can be reached on.
func ValidateEndpoint(input string) error {
	ap, err := netip.ParseAddrPort(strings.TrimSpace(input))
	if err != nil {
		return errors.New("must be ip:port")
	}
	if _, err := wire.PeerFromAddrPort(ap); err != nil {
		return errors.New("must be an IPv4 address")
	}
	if ap.Port() == 0 {
		return errors.New("port must be non-zero")
	}
	return nil
}

// Endpoint prompts for the ip:port a seeder listens on.
func Endpoint(label, defaultValue string) (wire.PeerRecord, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: ValidateEndpoint,
	}

	result, err := p.Run()
	if err != nil {
		return wire.PeerRecord{}, wrapError(err)
	}

	// Already validated
	ap := netip.MustParseAddrPort(strings.TrimSpace(result))
	return wire.PeerFromAddrPort(ap)
}

// fileTemplates render catalog entries in the file picker.
func fileTemplates() *promptui.SelectTemplates {
	return &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .ID | cyan }} {{ .Name | cyan }}",
		Inactive: "  {{ .ID }} {{ .Name }}",
		Selected: "* {{ .Name | green }}",
		Details: `
{{ "Description:" | faint }}	{{ .Description }}`,
	}
}

// SelectFile lets the user pick a catalog file. ok is false when the catalog
// is empty.
func SelectFile(label string, files []wire.FileRecord) (fileID uint32, ok bool, err error) {
	if len(files) == 0 {
		return 0, false, nil
	}

	p := promptui.Select{
		Label:     label,
		Items:     files,
		Templates: fileTemplates(),
		Size:      10,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(files[index].Name), strings.ToLower(input))
		},
	}

	i, _, err := p.Run()
	if err != nil {
		return 0, false, wrapError(err)
	}
	return files[i].ID, true, nil
}
