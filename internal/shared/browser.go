package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the launcher argv for the current platform.
func browserCommand(url string) ([]string, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return []string{"open", url}, nil
	case "linux", "freebsd", "openbsd":
		return []string{"xdg-open", url}, nil
	case "windows":
		return []string{"cmd", "/c", "start", url}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenBrowser opens the default system browser on the songbook web UI (serve --open).
func OpenBrowser(url string) error {
	argv, err := browserCommand(url)
	if err != nil {
		return err
	}

	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
