package scraper

import (
	"os"
	"os/exec"
	"runtime"
)

var chromeExecutables = []string{
	"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "headless-shell",
}

// resolveChromeBinary picks the browser to launch: the configured path when
// it exists, else the first Chrome/Chromium found on PATH or in a well-known
// install location. An empty result lets chromedp use its own lookup.
func resolveChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
	}

	for _, name := range chromeExecutables {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range wellKnownChromePaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func wellKnownChromePaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{"/snap/bin/chromium", "/opt/google/chrome/google-chrome"}
	}
}
