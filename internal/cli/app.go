package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/castillo-ev/talk2jesus/internal/config"
	"github.com/castillo-ev/talk2jesus/internal/controller"
	"github.com/castillo-ev/talk2jesus/internal/responder"
	"github.com/castillo-ev/talk2jesus/internal/session"
	"github.com/castillo-ev/talk2jesus/internal/speech"
	"github.com/castillo-ev/talk2jesus/internal/telemetry"
)

// app bundles the collaborators every command needs: configuration, the
// session store and the logger, plus cleanup for whatever was opened.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  session.Store

	cleanups []func()
}

// newApp loads configuration and opens the session store.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := telemetry.ParseLevel(cfg.LogLevel)
	if logLevelFlag != "" {
		level = telemetry.ParseLevel(logLevelFlag)
	}
	logger, err := telemetry.InitLogger(cfg.LogDir, level)
	if err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	_, _, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	a.cleanups = append(a.cleanups, shutdown)

	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	return a, nil
}

func (a *app) openStore() (session.Store, error) {
	switch a.cfg.StoreBackend {
	case config.StoreSQLite:
		store, err := session.OpenSQLiteStore(a.cfg.HistoryPath, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.cleanups = append(a.cleanups, func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("failed to close history database", "error", err)
			}
		})
		return store, nil
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(a.cfg.HistoryPath, a.logger), nil
	}
}

// Close runs the accumulated cleanups in reverse order.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// newResponder builds the configured language-model backend.
func (a *app) newResponder() responder.Responder {
	if a.cfg.Provider == config.ProviderAnthropic {
		return responder.NewAnthropic(a.cfg.AnthropicAPIKey, a.cfg.AnthropicModel, a.cfg.PersonaPrompt, a.logger)
	}
	return responder.NewOpenRouter(a.cfg.OpenRouterAPIKey, a.cfg.OpenRouterModel, a.cfg.PersonaPrompt, a.logger)
}

// newSpeaker builds the speech output chain: the vendor voice when
// configured, always backed by the local fallback engine.
func (a *app) newSpeaker() *speech.Coordinator {
	var synth speech.Synthesizer
	var player speech.Player
	if a.cfg.ElevenLabsAPIKey != "" && a.cfg.ElevenLabsVoiceID != "" {
		synth = speech.NewElevenLabs(a.cfg.ElevenLabsAPIKey, a.cfg.ElevenLabsVoiceID, a.logger)
		player = speech.NewCommandPlayer(a.cfg.AudioPlayerCmd, a.logger)
	}

	var engine speech.Engine
	if a.cfg.SpeechEngineCmd != "" {
		voices := []speech.Voice{{Name: "en-us", Lang: speech.PersonaLocale}}
		engine = speech.NewCommandEngine(a.cfg.SpeechEngineCmd, voices, a.logger)
	}
	return speech.NewCoordinator(synth, player, engine, a.logger)
}

// newListener builds the speech input listener reading utterances from
// stdin, one line per turn.
func (a *app) newListener() *speech.Listener {
	return speech.NewListener(speech.NewReaderRecognizer(os.Stdin), a.logger)
}

// newController assembles a controller for the given mode.
func (a *app) newController(mode session.Type, speaker controller.Speaker, listener controller.InputListener) *controller.Controller {
	return controller.New(a.store, a.newResponder(), speaker, listener, mode, a.logger)
}
