package router

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/TZeys/RVCI/rvci-router/audio"
	"github.com/TZeys/RVCI/rvci-router/config"
)

const (
	// Accepted frames closer together than this are discarded, bounding
	// the audio-control call rate independent of link baud rate.
	frameMinInterval = 25 * time.Millisecond
	// Sleep after a timed-out or empty read so a quiet link does not
	// busy-spin.
	idleSleep = 10 * time.Millisecond
	// Backoff after a failed config load or serial open.
	retryBackoff = 2 * time.Second
	// The pid-to-name cache is cleared after this many accepted frames.
	cacheAmnestyFrames = 200

	buttonDevice1 = "WORKS 1"
	buttonDevice2 = "WORKS 2"
)

// VolumeSink applies a value that survived smoothing and debounce.
type VolumeSink interface {
	Apply(dial config.Dial, level float64)
	ResetNames()
}

// DeviceSwitcher changes the default playback device.
type DeviceSwitcher interface {
	Switch(target string) bool
}

// Run is the reload supervisor and routing loop. It loads the shared
// configuration, opens the serial link, and pumps lines until the
// configuration changes on disk, then rebuilds from scratch. It never
// terminates on environmental failure; every load or open error is
// retried after a fixed backoff.
func Run(ctx context.Context, wg *sync.WaitGroup, state *RouterState, logger *log.Logger, configPath string, sys audio.Subsystem, resolver audio.ProcessNameResolver) {
	defer wg.Done()
	logger.Println("Router Goroutine Started.")

	// COM initialization is per-thread, so the subsystem is brought up
	// here, on the goroutine that makes every audio call.
	if err := sys.Init(); err != nil {
		logger.Printf("Audio subsystem init failed: %v. Running without audio control.", err)
		sys = audio.Unavailable()
	} else {
		defer sys.Release()
	}

	var signature string
	var chans *ChannelState

	for {
		select {
		case <-ctx.Done():
			logger.Println("Router Goroutine shutting down.")
			return
		default:
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			state.SetStatus(fmt.Sprintf("Config unavailable: %v", err))
			if !sleepCtx(ctx, retryBackoff) {
				return
			}
			continue
		}

		var rebuilt bool
		chans, signature, rebuilt = reconcileChannelState(chans, signature, cfg)
		if rebuilt {
			logger.Printf("Link signature is now %q; channel state rebuilt.", signature)
		}
		state.SetConfig(cfg)

		if err := runLink(ctx, cfg, chans, state, logger, configPath, sys, resolver); err != nil {
			logger.Printf("Link error: %v. Retrying.", err)
			state.SetLink(false)
			state.SetStatus(fmt.Sprintf("Link error: %v", err))
			if !sleepCtx(ctx, retryBackoff) {
				return
			}
		}
	}
}

// reconcileChannelState applies the reload policy: a changed link
// signature (port or baud) rebuilds channel state from scratch, while a
// dial-only change resizes it positionally so surviving channels keep
// their smoother history. Returns the state to use, the new signature,
// and whether a rebuild happened.
func reconcileChannelState(chans *ChannelState, oldSig string, cfg *config.AppConfig) (*ChannelState, string, bool) {
	sig := cfg.Signature()
	if sig != oldSig || chans == nil {
		return NewChannelState(len(cfg.Dials)), sig, true
	}
	chans.Resize(len(cfg.Dials))
	return chans, sig, false
}

// runLink owns one open serial session. It returns nil when the
// configuration file changed (caller reloads) or the context was
// cancelled, and an error on any serial failure (caller backs off).
func runLink(ctx context.Context, cfg *config.AppConfig, chans *ChannelState, state *RouterState, logger *log.Logger, configPath string, sys audio.Subsystem, resolver audio.ProcessNameResolver) error {
	mode := &serial.Mode{
		BaudRate: cfg.Serial.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	state.SetStatus(fmt.Sprintf("Opening %s @ %d baud...", cfg.Serial.Port, cfg.Serial.Baud))
	port, err := serial.Open(cfg.Serial.Port, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Serial.Port, err)
	}
	defer port.Close()

	timeout := time.Duration(cfg.Serial.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = config.DefaultTimeoutMS * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	state.SetLink(true)
	state.SetStatus(fmt.Sprintf("Connected to %s", cfg.Serial.Port))
	state.Emit("LINK_UP", cfg.Serial.Port, fmt.Sprintf("%d baud", cfg.Serial.Baud))
	logger.Printf("Connected to %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud)

	session := &linkSession{
		cfg:      cfg,
		chans:    chans,
		state:    state,
		logger:   logger,
		sink:     audio.NewSink(sys, resolver, cfg.ClaimedNames()),
		switcher: audio.NewSwitcher(cfg.SoundVolumeViewPath, sys),
	}

	lastMod := modTime(configPath)
	lines := newLineReader(port)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-state.CommandChan:
			session.handleCommand(cmd)
		default:
		}

		// The config file is the only coordination channel with the
		// editor; a changed mtime means rebuild from scratch.
		if mt := modTime(configPath); !mt.IsZero() && !mt.Equal(lastMod) {
			logger.Println("Configuration changed on disk; rebuilding link.")
			state.Emit("CONFIG_RELOAD", configPath, "")
			return nil
		}

		line, ok, err := lines.Next()
		if err != nil {
			state.Emit("LINK_LOST", cfg.Serial.Port, err.Error())
			return fmt.Errorf("read: %w", err)
		}
		if !ok {
			time.Sleep(idleSleep)
			continue
		}
		session.handleLine(line)
	}
}

// linkSession carries the per-connection routing state.
type linkSession struct {
	cfg      *config.AppConfig
	chans    *ChannelState
	state    *RouterState
	logger   *log.Logger
	sink     VolumeSink
	switcher DeviceSwitcher

	lastAccepted time.Time
	frameCount   int
	now          func() time.Time
}

func (s *linkSession) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// handleLine classifies one wire line and dispatches it. Button signals
// bypass smoothing and the frame rate gate; everything else is a channel
// frame or garbage.
func (s *linkSession) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	s.state.UpdateLine(line)

	switch line {
	case buttonDevice1:
		s.pressButton(1, s.cfg.WorkDevice1)
		return
	case buttonDevice2:
		s.pressButton(2, s.cfg.WorkDevice2)
		return
	}

	fields := strings.Split(line, "|")
	if len(fields) != len(s.cfg.Dials) {
		// Transient garbage or a truncated read during reconnection; no
		// partial application.
		s.state.MarkDropped()
		return
	}

	now := s.clock()
	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < frameMinInterval {
		s.state.MarkDropped()
		return
	}
	s.lastAccepted = now

	s.frameCount++
	if s.frameCount > cacheAmnestyFrames {
		s.sink.ResetNames()
		s.frameCount = 0
	}

	s.applyFrame(fields)
	s.state.MarkAccepted()
}

// applyFrame parses and applies every field of an accepted frame. A field
// that fails to parse is skipped for that position only; parse noise on
// one channel must not block the others.
func (s *linkSession) applyFrame(fields []string) {
	for i, field := range fields {
		raw, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		x := Normalize(raw, s.cfg.ValueMax)
		smoothed := s.chans.Smoothers[i].Process(x)
		if math.Abs(smoothed-s.chans.LastApplied[i]) < applyEpsilon {
			continue
		}
		s.chans.LastApplied[i] = smoothed
		s.sink.Apply(s.cfg.Dials[i], smoothed)
		s.state.UpdateLevel(i, smoothed)
	}
}

func (s *linkSession) pressButton(slot int, target string) {
	s.state.MarkButton()
	if s.switcher.Switch(target) {
		s.logger.Printf("Button %d: default playback device -> %q", slot, target)
		s.state.Emit("DEVICE_SWITCH", target, fmt.Sprintf("button %d", slot))
	}
}

func (s *linkSession) handleCommand(cmd interface{}) {
	switch c := cmd.(type) {
	case SwitchDeviceCmd:
		target := s.cfg.WorkDevice1
		if c.Slot == 2 {
			target = s.cfg.WorkDevice2
		}
		if s.switcher.Switch(target) {
			s.logger.Printf("User command: default playback device -> %q", target)
			s.state.Emit("USER_COMMAND", target, fmt.Sprintf("switch %d", c.Slot))
			s.state.SetStatus(fmt.Sprintf("Switched output to %q", target))
		} else {
			s.state.SetStatus(fmt.Sprintf("No device matched %q", target))
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// sleepCtx sleeps for d unless the context is cancelled first; it reports
// whether the caller should keep running.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
