package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	promptHandle = "OSINT > Enter base username: "
	promptAgain  = "Do you want to scan another username? (y/n): "
)

// scanFunc scans one handle and returns the rendered result.
type scanFunc func(ctx context.Context, handle string) (string, error)

// runInteractive asks for a handle, scans it, prints the result and repeats
// while the user answers yes. An empty handle or end of input ends the loop.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, scan scanFunc) error {
	reader := bufio.NewReader(in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, promptHandle)
		line, err := readLine(reader)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read handle: %w", err)
		}

		handle := normalizeHandle(line)
		if handle == "" {
			fmt.Fprintln(out, "No username entered. Exiting.")
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}
		if verr := validateHandle(handle); verr != nil {
			fmt.Fprintf(out, "%v\n", verr)
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}

		fmt.Fprint(out, "\nProcessing scan, please wait...\n\n")
		rendered, scanErr := scan(ctx, handle)
		if rendered != "" {
			fmt.Fprintln(out, rendered)
		}
		if scanErr != nil {
			return scanErr
		}

		again, err := askAgain(reader, out)
		if err != nil {
			return err
		}
		if !again {
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}
	}
}

// askAgain repeats the question until it reads y/yes, n/no or an empty answer.
func askAgain(reader *bufio.Reader, out io.Writer) (bool, error) {
	for {
		fmt.Fprint(out, promptAgain)
		line, err := readLine(reader)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		}

		if errors.Is(err, io.EOF) {
			return false, nil
		}
		fmt.Fprintln(out, "Please answer with 'y' or 'n'.")
	}
}

// readLine returns the next line without its terminator. io.EOF is returned
// together with any trailing partial line.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}
