package skillcall

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/skillcall/pkg/adapters/stt"
	"github.com/harunnryd/skillcall/pkg/adapters/tts"
	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/call"
)

// Deps is what a provider factory may draw on besides its own settings.
type Deps struct {
	Config  Config
	Backend *backend.Client
	Logger  *slog.Logger
}

type SynthesizerFactory func(settings map[string]any, deps Deps) (tts.Synthesizer, error)
type PlayerFactory func(settings map[string]any, deps Deps) (tts.Player, error)
type RecognizerFactory func(settings map[string]any, deps Deps) (stt.Recognizer, error)
type RingerFactory func(settings map[string]any, deps Deps) (call.Ringer, error)

// ProviderRegistry maps provider names from the vendors config section to
// factories. Names are case insensitive.
type ProviderRegistry struct {
	tts     map[string]SynthesizerFactory
	player  map[string]PlayerFactory
	capture map[string]RecognizerFactory
	ringer  map[string]RingerFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		tts:     make(map[string]SynthesizerFactory),
		player:  make(map[string]PlayerFactory),
		capture: make(map[string]RecognizerFactory),
		ringer:  make(map[string]RingerFactory),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *ProviderRegistry) RegisterSynthesizer(name string, factory SynthesizerFactory) {
	r.tts[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterPlayer(name string, factory PlayerFactory) {
	r.player[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterRecognizer(name string, factory RecognizerFactory) {
	r.capture[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterRinger(name string, factory RingerFactory) {
	r.ringer[normalize(name)] = factory
}

func (r *ProviderRegistry) BuildSynthesizer(vc VendorConfig, deps Deps) (tts.Synthesizer, error) {
	fn := r.tts[normalize(vc.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", vc.Provider)
	}
	s, err := fn(vc.Settings, deps)
	if err != nil {
		return nil, fmt.Errorf("tts provider %s: %w", vc.Provider, err)
	}
	return s, nil
}

func (r *ProviderRegistry) BuildPlayer(vc VendorConfig, deps Deps) (tts.Player, error) {
	fn := r.player[normalize(vc.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("player provider not registered: %s", vc.Provider)
	}
	p, err := fn(vc.Settings, deps)
	if err != nil {
		return nil, fmt.Errorf("player provider %s: %w", vc.Provider, err)
	}
	return p, nil
}

func (r *ProviderRegistry) BuildRecognizer(vc VendorConfig, deps Deps) (stt.Recognizer, error) {
	fn := r.capture[normalize(vc.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("capture provider not registered: %s", vc.Provider)
	}
	rec, err := fn(vc.Settings, deps)
	if err != nil {
		return nil, fmt.Errorf("capture provider %s: %w", vc.Provider, err)
	}
	return rec, nil
}

func (r *ProviderRegistry) BuildRinger(vc VendorConfig, deps Deps) (call.Ringer, error) {
	fn := r.ringer[normalize(vc.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("ringer provider not registered: %s", vc.Provider)
	}
	rg, err := fn(vc.Settings, deps)
	if err != nil {
		return nil, fmt.Errorf("ringer provider %s: %w", vc.Provider, err)
	}
	return rg, nil
}
