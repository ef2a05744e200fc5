package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/bus"
	"github.com/leonardotrapani/hyprcaption/internal/caption"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/language"
	"github.com/leonardotrapani/hyprcaption/internal/notify"
	"github.com/leonardotrapani/hyprcaption/internal/observe"
	"github.com/leonardotrapani/hyprcaption/internal/output"
	"github.com/leonardotrapani/hyprcaption/internal/pipeline"
	"github.com/leonardotrapani/hyprcaption/internal/session"
	"github.com/leonardotrapani/hyprcaption/internal/settings"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
	"github.com/leonardotrapani/hyprcaption/internal/vad"
)

// updateBuffer is how many hypotheses may queue between the pipeline and the
// consolidator.
const updateBuffer = 64

// Deps are the daemon's collaborators. Everything but Config is optional and
// built from the config when nil.
type Deps struct {
	Config   *config.Config
	Manager  *config.Manager
	Settings *settings.Store
	Notifier notify.Notifier
	Backend  audio.Backend
	Sink     caption.Sink
	Provider *observe.Provider
	// NewTranscriber builds the recognizer for one session.
	NewTranscriber func(transcriber.Config) (pipeline.Transcriber, error)
	// OnDisplay receives every new display line.
	OnDisplay func(string)
}

type Daemon struct {
	notifier       notify.Notifier
	manager        *config.Manager
	store          *settings.Store
	backend        audio.Backend
	provider       *observe.Provider
	metrics        *observe.Metrics
	newTranscriber func(transcriber.Config) (pipeline.Transcriber, error)

	updates      chan caption.Update
	consolidator *caption.Consolidator
	output       *output.Async
	sessions     *session.Manager

	mu       sync.RWMutex
	cfg      *config.Config
	mode     audio.Mode
	language string

	ctx        context.Context // cancelled on quit
	cancel     context.CancelFunc
	sessionCtx context.Context // outlives ctx until sessions are flushed
}

func New(deps Deps) (*Daemon, error) {
	if deps.Config == nil {
		return nil, errors.New("daemon requires a config")
	}
	cfg := deps.Config

	d := &Daemon{
		notifier:       deps.Notifier,
		manager:        deps.Manager,
		store:          deps.Settings,
		backend:        deps.Backend,
		provider:       deps.Provider,
		newTranscriber: deps.NewTranscriber,
		updates:        make(chan caption.Update, updateBuffer),
		cfg:            cfg,
	}

	if d.notifier == nil {
		d.notifier = notify.New(cfg.NotificationType())
	}
	if d.provider != nil {
		d.metrics = d.provider.Metrics
	}
	if d.backend == nil {
		b, err := audio.NewBackend(cfg.Audio.Backend, cfg.Audio.ChannelBufferSize)
		if err != nil {
			return nil, err
		}
		d.backend = b
	}
	if d.newTranscriber == nil {
		d.newTranscriber = func(c transcriber.Config) (pipeline.Transcriber, error) {
			return transcriber.New(c)
		}
	}

	sink := deps.Sink
	if sink == nil {
		committer, err := output.NewCommitter(cfg.ToOutputConfig())
		if err != nil {
			return nil, err
		}
		sink = committer
	}
	d.output = output.NewAsync(sink)

	// persisted selections win over the config file
	d.mode = audio.ModeDefault
	if m, err := audio.ParseMode(d.setting(settings.KeyMode, cfg.Audio.Mode)); err == nil {
		d.mode = m
	}
	d.language = d.setting(settings.KeyLanguage, cfg.Transcription.Language)
	if !language.IsValidCode(d.language) {
		d.language = language.Auto.Code
	}
	commit := cfg.Output.Commit
	if d.store != nil {
		commit = d.store.Bool(settings.KeyCommit, commit)
	}

	opts := cfg.ToCaptionOptions()
	opts.CommitEnabled = commit
	opts.OnDisplay = deps.OnDisplay
	opts.Metrics = d.metrics
	d.consolidator = caption.NewConsolidator(d.output, opts)

	d.sessions = session.NewManager(d.newSession, d.notifier, d.metrics)
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

func (d *Daemon) setting(key, def string) string {
	if d.store == nil {
		return def
	}
	return d.store.String(key, def)
}

func (d *Daemon) persist(key string, value any) {
	if d.store == nil {
		return
	}
	if err := d.store.Set(key, value); err != nil {
		log.Printf("Daemon: failed to persist %s: %v", key, err)
	}
}

// Run claims the pid file and control socket, then serves until SIGINT,
// SIGTERM or a quit command.
func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	return d.Serve(ln)
}

// Serve handles control requests on ln until the daemon is told to quit. The
// running session is stopped cooperatively and queued commits are delivered
// before Serve returns.
func (d *Daemon) Serve(ln net.Listener) error {
	defer d.cancel()

	sessionCtx, stopSessions := context.WithCancel(context.Background())
	defer stopSessions()
	d.mu.Lock()
	d.sessionCtx = sessionCtx
	d.mu.Unlock()

	consumerDone := make(chan error, 1)
	go func() { consumerDone <- d.consolidator.Run(sessionCtx, d.updates) }()

	g, gctx := errgroup.WithContext(d.ctx)
	g.Go(func() error { return d.acceptLoop(gctx, ln) })
	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		return nil
	})
	if d.manager != nil {
		g.Go(func() error { return d.watchConfig(gctx) })
	}
	if d.provider != nil && d.config().Metrics.Enabled {
		addr := d.config().Metrics.Addr
		g.Go(func() error {
			if err := d.provider.Serve(gctx, addr); err != nil {
				log.Printf("Metrics: server failed: %v", err)
			}
			return nil
		})
	}

	log.Printf("Daemon started, listening on socket")
	if err := d.restart(); err != nil {
		log.Printf("Daemon: initial session failed: %v", err)
	}

	err := g.Wait()

	// every pipeline has exited once Stop returns, so the consumer only has
	// to work through what is already buffered
	d.sessions.Stop()
	stopSessions()
	<-consumerDone

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*d.config().Output.Timeout)
	defer cancel()
	if cerr := d.output.Close(closeCtx); cerr != nil {
		log.Printf("Daemon: pending commits dropped: %v", cerr)
	}
	log.Printf("Daemon stopped")
	return err
}

func (d *Daemon) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) watchConfig(ctx context.Context) error {
	updates := d.manager.Subscribe()
	if err := d.manager.StartWatching(ctx); err != nil {
		log.Printf("Daemon: config watching disabled: %v", err)
		return nil
	}
	defer d.manager.Stop()

	for {
		select {
		case cfg := <-updates:
			d.applyConfig(cfg)
		case <-ctx.Done():
			return nil
		}
	}
}

// applyConfig adopts a reloaded config file. Edits to the input mode or
// language in the file override the persisted selection.
func (d *Daemon) applyConfig(next *config.Config) {
	d.mu.Lock()
	prev := d.cfg
	d.cfg = next
	restart := sessionChanged(prev, next)
	if next.Audio.Mode != prev.Audio.Mode {
		if m, err := audio.ParseMode(next.Audio.Mode); err == nil {
			d.mode = m
		}
	}
	if next.Transcription.Language != prev.Transcription.Language {
		d.language = next.Transcription.Language
	}
	d.mu.Unlock()

	if next.Audio.Backend != prev.Audio.Backend || next.Audio.ChannelBufferSize != prev.Audio.ChannelBufferSize {
		log.Printf("Daemon: audio backend changes take effect after a daemon restart")
	}
	if next.Output.Threshold != prev.Output.Threshold {
		log.Printf("Daemon: output.threshold changes take effect after a daemon restart")
	}
	if next.Output.Commit != prev.Output.Commit {
		d.setCommit(next.Output.Commit)
	}
	if restart {
		if err := d.restart(); err != nil {
			log.Printf("Daemon: restart after config reload failed: %v", err)
		}
	}
}

func sessionChanged(a, b *config.Config) bool {
	return a.Audio.Mode != b.Audio.Mode ||
		a.Audio.AlternateDevice != b.Audio.AlternateDevice ||
		a.VAD != b.VAD ||
		a.Transcription != b.Transcription
}

func (d *Daemon) config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) selection() session.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return session.Config{
		Mode:            d.mode,
		AlternateDevice: d.cfg.Audio.AlternateDevice,
		Language:        d.language,
	}
}

// restart replaces the running session with one for the current selection.
func (d *Daemon) restart() error {
	d.mu.RLock()
	ctx := d.sessionCtx
	d.mu.RUnlock()
	if ctx == nil {
		return errors.New("daemon is not serving")
	}
	return d.sessions.Restart(ctx, d.selection())
}

func (d *Daemon) newSession(sc session.Config, id uint64) (session.Runner, error) {
	cfg := d.config()

	detector := vad.NewEnergyDetector(cfg.VAD.SpeechThreshold, cfg.VAD.SilenceThreshold)
	segmenter, err := vad.NewSegmenter(cfg.ToVADConfig(), detector)
	if err != nil {
		return nil, err
	}

	tc := cfg.ToTranscriberConfig()
	tc.Language = sc.Language
	tr, err := d.newTranscriber(tc)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Config{
		Session:         id,
		Mode:            sc.Mode,
		AlternateDevice: sc.AlternateDevice,
	}, pipeline.Deps{
		Backend:     d.backend,
		Segmenter:   segmenter,
		Transcriber: tr,
		Updates:     d.updates,
		Metrics:     d.metrics,
	}), nil
}

func (d *Daemon) setCommit(on bool) {
	d.consolidator.SetCommitEnabled(on)
	d.persist(settings.KeyCommit, on)
	go d.notifier.CommitChanged(on)
	log.Printf("Daemon: commit %s", onOff(on))
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, err := bus.ParseRequest(line)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}

	fmt.Fprint(c, d.execute(cmd, arg))
}

// execute runs one control command and returns the reply line.
func (d *Daemon) execute(cmd byte, arg string) string {
	switch cmd {
	case bus.CmdStatus:
		return d.statusLine()

	case bus.CmdMode:
		mode, err := d.nextMode(arg)
		if err != nil {
			return fmt.Sprintf("ERR %v\n", err)
		}
		d.mu.Lock()
		d.mode = mode
		d.mu.Unlock()
		d.persist(settings.KeyMode, string(mode))
		if err := d.restart(); err != nil {
			return fmt.Sprintf("ERR restart: %v\n", err)
		}
		return fmt.Sprintf("OK mode=%s\n", mode)

	case bus.CmdLanguage:
		lang, err := language.Parse(arg)
		if err != nil {
			return fmt.Sprintf("ERR %v\n", err)
		}
		d.mu.Lock()
		d.language = lang.Code
		d.mu.Unlock()
		d.persist(settings.KeyLanguage, lang.Code)
		if err := d.restart(); err != nil {
			return fmt.Sprintf("ERR restart: %v\n", err)
		}
		return fmt.Sprintf("OK language=%s\n", lang.Code)

	case bus.CmdCommit:
		on, err := parseCommit(arg, d.consolidator.CommitEnabled())
		if err != nil {
			return fmt.Sprintf("ERR %v\n", err)
		}
		d.setCommit(on)
		return fmt.Sprintf("OK commit=%s\n", onOff(on))

	case bus.CmdRestart:
		if err := d.restart(); err != nil {
			return fmt.Sprintf("ERR restart: %v\n", err)
		}
		return fmt.Sprintf("OK session=%d\n", d.sessions.ID())

	case bus.CmdCaption:
		return fmt.Sprintf("CAPTION %s\n", oneLine(d.consolidator.Display()))

	case bus.CmdVersion:
		return fmt.Sprintf("STATUS proto=%s\n", bus.ProtoVer)

	case bus.CmdQuit:
		d.cancel()
		return "OK quitting\n"

	default:
		log.Printf("Unknown command: %c", cmd)
		return fmt.Sprintf("ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) statusLine() string {
	sel := d.selection()
	status := pipeline.Stopped
	if d.sessions.Running() {
		status = pipeline.Running
	}
	return fmt.Sprintf("STATUS status=%s session=%d mode=%s language=%s commit=%s pending=%d\n",
		status, d.sessions.ID(), sel.Mode, sel.Language,
		onOff(d.consolidator.CommitEnabled()), len(d.consolidator.Pending()))
}

// nextMode parses a mode argument; no argument toggles.
func (d *Daemon) nextMode(arg string) (audio.Mode, error) {
	if arg == "" || arg == "toggle" {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return d.mode.Toggle(), nil
	}
	return audio.ParseMode(arg)
}

func parseCommit(arg string, current bool) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "toggle":
		return !current, nil
	default:
		return false, fmt.Errorf("invalid commit argument %q (must be on, off or toggle)", arg)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Quit asks a serving daemon to stop.
func (d *Daemon) Quit() {
	d.cancel()
}

// Done is closed once the daemon has been asked to stop.
func (d *Daemon) Done() <-chan struct{} {
	return d.ctx.Done()
}
