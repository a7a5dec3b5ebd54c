package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const repoSlug = "rasterly/rasterly"

// runUpdate checks GitHub releases for a newer build and replaces the
// current binary after confirmation.
func runUpdate(current string) error {
	v, err := semver.Parse(strings.TrimPrefix(current, "v"))
	if err != nil {
		return fmt.Errorf("could not parse current version %q: %w", current, err)
	}
	fmt.Printf("Current version: %s\n", v)

	latest, found, err := selfupdate.DetectLatest(repoSlug)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if !found || latest.Version.LTE(v) {
		fmt.Println("Already up to date.")
		return nil
	}

	fmt.Printf("A new version (%s) is available. Update now? (y/N): ", latest.Version)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed reading input: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Println("Update cancelled.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Printf("Updated to version %s. Restart to use the new binary.\n", latest.Version)
	return nil
}
