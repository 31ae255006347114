package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/gregiteen/ai-devices/internal/audio"
	"github.com/gregiteen/ai-devices/internal/config"
	"github.com/gregiteen/ai-devices/internal/logging"
	"github.com/gregiteen/ai-devices/internal/metrics"
	"github.com/gregiteen/ai-devices/internal/remote"
	"github.com/gregiteen/ai-devices/internal/settings"
	"github.com/gregiteen/ai-devices/internal/store"
	"github.com/gregiteen/ai-devices/internal/stream"
)

// runtime holds the collaborators shared by every command.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	settings *settings.Settings
	metrics  *metrics.Collector
	reducer  *stream.Reducer
	action   remote.Action
	player   *audio.Command
	speaker  *audio.Command

	// reducerOpts builds extra reducers that share the process wiring.
	reducerOpts []stream.Option
}

// newRuntime wires the process. logPath overrides the configured log
// destination; headless commands pass "stderr".
func newRuntime(cfg config.Config, logPath string) (*runtime, error) {
	logger, err := logging.New(logPath, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	rt.store = st

	initial, err := st.LoadSettings()
	if err != nil {
		st.Close()
		return nil, err
	}

	var speaker settings.Speaker = audio.Nop{}
	if sp, err := audio.NewCommand(cfg.Audio.Speaker, logger); err == nil {
		rt.speaker = sp
		speaker = sp
	} else {
		logger.Warn("speech output disabled", zap.Error(err))
	}
	opts := []settings.Option{
		settings.WithSpeaker(speaker),
		settings.OnChange(func(snap settings.Snapshot) {
			if err := st.SaveSettings(snap); err != nil {
				logger.Warn("save settings", zap.Error(err))
			}
		}),
	}
	if initial != nil {
		opts = append(opts, settings.WithInitial(*initial))
	}
	rt.settings = settings.New(opts...)

	rt.metrics = metrics.NewCollector("hark", nil, logger)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := rt.metrics.Serve(cfg.Metrics.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	reducerOpts := []stream.Option{
		stream.WithDeadline(cfg.Remote.Deadline),
		stream.WithLogger(logger),
		stream.WithMetrics(rt.metrics),
		stream.OnComplete(func(c stream.Completion) {
			if err := st.RecordLatency(store.FromCompletion(c)); err != nil {
				logger.Warn("record latency", zap.Error(err))
			}
		}),
	}
	if cfg.Audio.Player != "" {
		player, err := audio.NewCommand(cfg.Audio.Player, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.player = player
		reducerOpts = append(reducerOpts, stream.WithPlayer(player))
	}
	rt.reducerOpts = reducerOpts
	rt.reducer = rt.newReducer()

	action, err := remote.New(cfg.Remote.Network, cfg.Remote.Address)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("configure remote: %w", err)
	}
	rt.action = action
	return rt, nil
}

// newReducer returns a reducer with its own live session that records to the
// same metrics, store and player as rt.reducer.
func (rt *runtime) newReducer() *stream.Reducer {
	return stream.NewReducer(rt.reducerOpts...)
}

// gating reports which toggles this client offers.
func (rt *runtime) gating() remote.Gating {
	return remote.Gating{
		TTSAvailable:      rt.cfg.Features.TTSToggle,
		InternetAvailable: rt.cfg.Features.InternetToggle,
		PhotosAvailable:   rt.cfg.Features.PhotosToggle,
	}
}

// Close stops playback, lets spoken cues finish, and closes the store.
func (rt *runtime) Close() {
	if rt.player != nil {
		rt.player.Stop()
	}
	if rt.speaker != nil {
		rt.speaker.Wait()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	_ = rt.logger.Sync()
}
