package sstv

// Mode is the capability surface a registered SSTV mode exposes: encode an
// arbitrary raster to audio, feed audio chunks into a resumable decoder, and
// read back the image decoded so far. Grounded on the teacher repository's
// AudioExtensionRegistry/extension-factory pattern (audio_extension.go),
// narrowed to the three operations this spec needs.
type Mode interface {
	Encode(src *SourceImage) *Signal
	Decode(chunk []float32) DecodeResult
	Image() *Image
}

// ModeFactory constructs a fresh, zero-state Mode instance.
type ModeFactory func() Mode

// ModeRegistry maps mode names to factories. Only one mode, "martinm1", is
// registered today; the registry exists so a second mode can be added
// without touching call sites (spec.md Design Notes §9 "Absence of dynamic
// dispatch").
type ModeRegistry struct {
	factories map[string]ModeFactory
}

// NewModeRegistry returns an empty registry.
func NewModeRegistry() *ModeRegistry {
	return &ModeRegistry{factories: make(map[string]ModeFactory)}
}

// Register adds a mode factory under name, overwriting any previous
// registration for that name.
func (r *ModeRegistry) Register(name string, factory ModeFactory) {
	r.factories[name] = factory
}

// New constructs a fresh Mode instance for name. ok is false if name was
// never registered.
func (r *ModeRegistry) New(name string) (mode Mode, ok bool) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Names returns the currently registered mode names.
func (r *ModeRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is the package-level registry, pre-populated with the
// "martinm1" mode. Callers that only ever want Martin M1 can skip it
// entirely and call NewMartinM1 directly.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *ModeRegistry {
	r := NewModeRegistry()
	r.Register("martinm1", func() Mode { return NewMartinM1() })
	return r
}
