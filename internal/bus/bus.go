package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprcaption.pid"
const ProtoVer = "0.2"

// Commands understood by the daemon. Each request is one line: the command
// byte, optionally followed by a space and an argument.
const (
	CmdStatus   byte = 's'
	CmdMode     byte = 'm'
	CmdLanguage byte = 'l'
	CmdCommit   byte = 'c'
	CmdRestart  byte = 'r'
	CmdCaption  byte = 'p'
	CmdVersion  byte = 'v'
	CmdQuit     byte = 'q'
)

const dialTimeout = 2 * time.Second

// ~/.cache/hyprcaption
func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprcaption"), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// ~/.cache/hyprcaption/control.sock
func SockPath() (string, error) {
	return getSockPath()
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, dialTimeout)
}

func (s *socketManager) send(cmd byte, arg string) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err := c.Write([]byte(FormatRequest(cmd, arg))); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return resp, err
}

func defaultSocket() (*socketManager, error) {
	sp, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: sp}, nil
}

func Listen() (net.Listener, error) {
	sm, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand sends one request to the running daemon and returns its reply
// line.
func SendCommand(cmd byte, arg string) (string, error) {
	sm, err := defaultSocket()
	if err != nil {
		return "", err
	}
	return sm.send(cmd, arg)
}

func FormatRequest(cmd byte, arg string) string {
	if arg == "" {
		return string([]byte{cmd, '\n'})
	}
	return fmt.Sprintf("%c %s\n", cmd, arg)
}

// ParseRequest splits a request line into its command byte and argument.
func ParseRequest(line string) (byte, string, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return 0, "", errors.New("empty request")
	}
	cmd := line[0]
	arg := ""
	if len(line) > 1 {
		if line[1] != ' ' {
			return 0, "", fmt.Errorf("malformed request %q", line)
		}
		arg = strings.TrimSpace(line[2:])
	}
	return cmd, arg, nil
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails if the pid file names a live process, and removes the
// file if it is stale or unreadable.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		_ = os.Remove(p.path)
		return nil
	}

	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultPid() (*pidManager, error) {
	pp, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: pp}, nil
}

func CheckExistingDaemon() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.remove()
}
