package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/phaseplan/internal/constants"
)

// ErrCompanionNotRunning is returned when no desktop companion is listening.
var ErrCompanionNotRunning = errors.New("phaseplan companion is not running")

const companionExecutablePrefix = "phaseplan-companion"

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// WebhookPayload is the body posted to the desktop companion.
type WebhookPayload struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	Variant    string `json:"variant"`
	DurationMs uint32 `json:"duration_ms"`
}

// Desktop forwards notifications to the desktop companion app. The companion
// advertises itself with a lockfile of the form "port|pid|secret"; the pid is
// checked against the running process table before anything is sent.
type Desktop struct {
	client *http.Client
}

func NewDesktop() *Desktop {
	return &Desktop{client: &http.Client{}}
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	dir, err := CompanionConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := findCompanion(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	return d.send(ctx, port, secret, WebhookPayload{
		Title:      n.Title,
		Text:       n.Description,
		Variant:    string(n.Variant),
		DurationMs: constants.NotificationDurationMs,
	})
}

// CompanionConfigDir returns the directory holding the companion lockfile.
func CompanionConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configDir, constants.CompanionAppIdentifier), nil
}

func findCompanion(lockfilePath string) (port string, secret string, err error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", ErrCompanionNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port = strings.TrimSpace(parts[0])
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}

	secret = strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", ErrCompanionNotRunning
	}
	if !strings.HasPrefix(process.Executable(), companionExecutablePrefix) {
		return "", "", fmt.Errorf("process with PID %d is not the companion (is %s)", pid, process.Executable())
	}

	return port, secret, nil
}

func (d *Desktop) send(ctx context.Context, port, secret string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://127.0.0.1:"+port, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Phaseplan-Secret", secret)

	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	msg, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(msg))
}
