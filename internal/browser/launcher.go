// Package browser opens article links in the user's browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/validation"
)

type Launcher struct {
	opener    string
	validator *validation.URLValidator
	start     func(name string, args ...string) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	opener := cfg.Browser.DefaultOpener
	if opener == "" {
		opener = defaultOpener()
	}
	return &Launcher{
		opener:    opener,
		validator: validation.NewArticleURLValidator(),
		start:     startDetached,
	}
}

// Open validates url and hands it to the configured opener. Links the
// provider returned that point at local or private hosts are refused.
func (l *Launcher) Open(url string) error {
	normalized, err := l.validator.ValidateAndNormalize(url)
	if err != nil {
		return fmt.Errorf("refusing to open link: %w", err)
	}

	name, args := commandFor(l.opener, normalized)
	if name == "" {
		return fmt.Errorf("no application found to open URL")
	}

	debuglog.Debugf("opening %s with %s", normalized, name)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// commandFor splits opener into a command and its arguments and appends the
// url. "start" is a cmd.exe builtin and needs wrapping.
func commandFor(opener, url string) (string, []string) {
	fields := strings.Fields(opener)
	if len(fields) == 0 {
		return "", nil
	}
	if fields[0] == "start" {
		return "cmd", []string{"/c", "start", "", url}
	}
	return fields[0], append(fields[1:], url)
}

func defaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "start"
	default:
		if _, err := exec.LookPath("xdg-open"); err == nil {
			return "xdg-open"
		}
		return "open"
	}
}

// Start GUI applications detached
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
