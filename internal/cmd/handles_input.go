package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

const maxHandleLength = 64

var errNoHandles = errors.New("no usable handle given; omit the argument to be prompted")

// resolveHandles returns the handles named on the command line or in
// handlesFile. An empty result means the caller should prompt; arguments that
// are all blank are an error instead.
func resolveHandles(positional []string, handlesFile string) ([]string, error) {
	trimmed := strings.TrimSpace(handlesFile)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional handles with --handles-file")
		}
		return readHandlesFile(trimmed)
	}

	handles := make([]string, 0, len(positional))
	for _, raw := range positional {
		handle := normalizeHandle(raw)
		if handle == "" {
			continue
		}
		if err := validateHandle(handle); err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	if len(positional) > 0 && len(handles) == 0 {
		return nil, errNoHandles
	}
	return handles, nil
}

func readHandlesFile(path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}
	return readHandles(reader)
}

func readHandles(reader io.Reader) ([]string, error) {
	handles := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		handle := normalizeHandle(raw)
		if err := validateHandle(handle); err != nil {
			return nil, fmt.Errorf("invalid handle on line %d: %w", line, err)
		}
		handles = append(handles, handle)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(handles) == 0 {
		return nil, fmt.Errorf("no handles found")
	}
	return handles, nil
}

// normalizeHandle trims whitespace and a leading @. Case is preserved.
func normalizeHandle(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}

func validateHandle(handle string) error {
	if handle == "" {
		return errors.New("handle must not be empty")
	}
	if len([]rune(handle)) > maxHandleLength {
		return fmt.Errorf("handle must be at most %d characters", maxHandleLength)
	}
	for _, r := range handle {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' || r == '?' || r == '#' {
			return fmt.Errorf("handle %q contains %q", handle, r)
		}
	}
	return nil
}
