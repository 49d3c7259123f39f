package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	inputFile = os.Stdin
)

func guidedInitialization(config *Config) error {
	scanner := bufio.NewScanner(inputFile)

	input, err := ask(scanner, "Enter path of the package archive to fingerprint"+current(config.ArchivePath))
	if err != nil {
		return err
	}
	if input != "" {
		config.ArchivePath = input
	}

	input, err = ask(scanner, fmt.Sprintf("Enter asset root inside the package [default: %s]", config.AssetRoot))
	if err != nil {
		return err
	}
	if input != "" {
		config.AssetRoot = input
	}

	dirHint := " [default: list from archive]"
	if config.AssetDir != "" {
		dirHint = current(config.AssetDir)
	}
	input, err = ask(scanner, "Enter unpacked asset directory to list from"+dirHint)
	if err != nil {
		return err
	}
	if input != "" {
		config.AssetDir = input
	}

	input, err = ask(scanner, fmt.Sprintf("Enter watch debounce (e.g. 250ms, 1s) [default: %s]", config.WatchDebounce))
	if err != nil {
		return err
	}
	if input != "" {
		duration, err := time.ParseDuration(input)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		config.WatchDebounce = duration
	}

	return nil
}

func ask(scanner *bufio.Scanner, prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("could not read user input: %w", err)
		}
		return "", nil // EOF or closed input
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func current(v string) string {
	if v == "" {
		return ""
	}
	return fmt.Sprintf(" [default: %s]", v)
}
