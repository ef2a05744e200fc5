package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	SessionStarted(mode, language string)
	CommitChanged(on bool)
	Error(msg string)
}

// New returns the notifier for a config type: "desktop", "log" or "none".
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

type Desktop struct{}

func (Desktop) SessionStarted(mode, language string) {
	send("-a", "Hyprcaption", fmt.Sprintf("Hyprcaption: Captioning %s input (%s)", mode, language))
}

func (Desktop) CommitChanged(on bool) {
	state := "off"
	if on {
		state = "on"
	}
	send("-a", "Hyprcaption", fmt.Sprintf("Hyprcaption: Commit %s", state))
}

func (Desktop) Error(msg string) {
	send("-a", "Hyprcaption", "-u", "critical", msg)
}

func send(args ...string) {
	cmd := exec.Command("notify-send", args...)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the daemon log.
type Log struct{}

func (Log) SessionStarted(mode, language string) {
	log.Printf("Hyprcaption: Captioning %s input (%s)", mode, language)
}

func (Log) CommitChanged(on bool) {
	log.Printf("Hyprcaption: Commit enabled=%v", on)
}

func (Log) Error(msg string) {
	log.Printf("Hyprcaption Error: %s", msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) SessionStarted(mode, language string) {}
func (Nop) CommitChanged(on bool)                {}
func (Nop) Error(msg string)                     {}
