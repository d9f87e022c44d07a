package kernel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hvxhost/internal/metrics"
	"hvxhost/internal/power"
)

// Loader opens kernel images, installs the runtime table into them and keeps
// the accelerator powered while at least one module is loaded.
type Loader struct {
	// mu serialises the open/acquire and close/release pairs.
	mu        sync.Mutex
	opener    Opener
	table     *Table
	power     *power.Context
	codeMode  CodeMode
	stagePath string
	// staged is set while a module opened from stagePath is loaded.
	staged bool
	log    zerolog.Logger
	nextID atomic.Uint64
	loaded atomic.Int64
}

// Options configures a Loader.
type Options struct {
	// Opener defaults to NativeOpener.
	Opener Opener
	// Table is installed into every image. Required.
	Table *Table
	// Power defaults to a context with a Nop controller.
	Power     *power.Context
	CodeMode  CodeMode
	StagePath string
	Logger    zerolog.Logger
}

// NewLoader returns a Loader. It panics if opts.Table is nil.
func NewLoader(opts Options) *Loader {
	if opts.Table == nil {
		panic("kernel: NewLoader requires a runtime table")
	}
	if opts.Opener == nil {
		opts.Opener = NativeOpener()
	}
	if opts.Power == nil {
		opts.Power = power.New(power.Options{Logger: opts.Logger})
	}
	if opts.StagePath == "" {
		opts.StagePath = DefaultStagePath
	}
	return &Loader{
		opener:    opts.Opener,
		table:     opts.Table,
		power:     opts.Power,
		codeMode:  opts.CodeMode,
		stagePath: opts.StagePath,
		log:       opts.Logger,
	}
}

// Load opens the image referenced by code, registers the runtime table with
// it and acquires accelerator power. On any failure nothing stays open.
func (l *Loader) Load(code []byte) (*Module, error) {
	m, err := l.load(code)
	metrics.LoadsTotal.WithLabelValues(metrics.Result(err)).Inc()
	return m, err
}

func (l *Loader) load(code []byte) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Staging shares one path, so it runs under the lock too.
	if l.codeMode == CodeModeBytes && l.staged {
		return nil, &Error{Kind: KindLoad, Path: l.stagePath, Err: ErrStageBusy}
	}
	path, err := resolveCode(l.codeMode, l.stagePath, code)
	if err != nil {
		return nil, &Error{Kind: KindLoad, Err: err}
	}

	img, err := l.opener.Open(path)
	if err != nil {
		l.log.Error().Err(err).Str("path", path).Msg("dlopen failed")
		return nil, &Error{Kind: KindLoad, Path: path, Err: err}
	}

	hook, ok := img.Lookup(RuntimeHook)
	if !ok {
		l.log.Error().Str("path", path).Msg(RuntimeHook + " not found in shared object")
		l.closeQuietly(img, path)
		return nil, &Error{Kind: KindLoad, Path: path, Symbol: RuntimeHook, Err: ErrSymbolNotFound}
	}

	if rc := img.SetRuntime(hook, l.table); rc != 0 {
		l.log.Error().Int32("status", rc).Str("path", path).Msg("set_runtime failed")
		l.closeQuietly(img, path)
		return nil, &Error{Kind: KindInit, Path: path, Symbol: RuntimeHook, Code: rc}
	}

	if err := l.power.Acquire(); err != nil {
		l.closeQuietly(img, path)
		return nil, &Error{Kind: KindPower, Path: path, Err: err}
	}

	m := &Module{
		id:       l.nextID.Add(1),
		path:     path,
		img:      img,
		loader:   l,
		loadedAt: time.Now(),
		staged:   l.codeMode == CodeModeBytes,
	}
	l.staged = l.staged || m.staged
	l.loaded.Add(1)
	l.log.Debug().Uint64("module", m.id).Str("path", path).Msg("kernel module loaded")
	return m, nil
}

func (l *Loader) closeQuietly(img Image, path string) {
	if err := img.Close(); err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("closing image after failed load")
	}
}

// release closes the module's image and drops its power reference. The
// counter is decremented even when the close fails.
func (l *Loader) release(m *Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	closeErr := m.img.Close()
	if m.staged {
		l.staged = false
	}
	if err := l.power.Release(); err != nil {
		l.log.Warn().Err(err).Uint64("module", m.id).Msg("power release")
	}
	l.loaded.Add(-1)
	if closeErr != nil {
		l.log.Error().Err(closeErr).Str("path", m.path).Msg("dlclose failed")
		return &Error{Kind: KindRelease, Path: m.path, Err: closeErr}
	}
	l.log.Debug().Uint64("module", m.id).Str("path", m.path).Msg("kernel module released")
	return nil
}

// Loaded returns the number of modules loaded and not yet released.
func (l *Loader) Loaded() int { return int(l.loaded.Load()) }

// Power returns the power context the loader acquires from.
func (l *Loader) Power() *power.Context { return l.power }

// CodeMode returns how Load interprets its argument.
func (l *Loader) CodeMode() CodeMode { return l.codeMode }
