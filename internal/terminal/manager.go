package terminal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
)

// Default PTY geometry when the caller does not supply one.
const (
	DefaultRows uint16 = 24
	DefaultCols uint16 = 80
)

// SpawnOptions tunes a single spawn.
type SpawnOptions struct {
	Rows       uint16
	Cols       uint16
	WorkingDir string
	Env        map[string]string
}

// Manager is the entry point for spawning and driving terminal sessions.
type Manager struct {
	registry *Registry
	resolver *Resolver
	opener   Opener
	hub      *Hub
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	defaultRows uint16
	defaultCols uint16
}

// Option configures a Manager.
type Option func(*Manager)

// WithResolver sets the shell resolver.
func WithResolver(r *Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithOpener sets the PTY backend.
func WithOpener(o Opener) Option {
	return func(m *Manager) { m.opener = o }
}

// WithHub sets the output hub.
func WithHub(h *Hub) Option {
	return func(m *Manager) { m.hub = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l.Named("terminal") }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithDefaultSize sets the geometry used when SpawnOptions leaves it zero.
func WithDefaultSize(rows, cols uint16) Option {
	return func(m *Manager) {
		if rows > 0 {
			m.defaultRows = rows
		}
		if cols > 0 {
			m.defaultCols = cols
		}
	}
}

// NewManager creates a manager over registry.
func NewManager(registry *Registry, opts ...Option) *Manager {
	m := &Manager{
		registry:    registry,
		logger:      zap.NewNop(),
		defaultRows: DefaultRows,
		defaultCols: DefaultCols,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.resolver == nil {
		m.resolver = NewResolver()
	}
	if m.opener == nil {
		m.opener = NewOpener()
	}
	if m.hub == nil {
		m.hub = NewHub(DefaultSubscriberBuffer)
	}
	return m
}

// Resolver returns the shell resolver in use.
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// Spawn starts a shell for profile and registers it under id.
//
// An existing session with the same id is replaced and torn down; callers
// own id uniqueness. Nothing is registered when the PTY or child fails.
func (m *Manager) Spawn(ctx context.Context, id, profile string, opts SpawnOptions) (*Info, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = m.defaultRows
	}
	if cols == 0 {
		cols = m.defaultCols
	}

	spec := m.resolver.Resolve(profile)
	spec.Dir = opts.WorkingDir
	spec.Env = append(spec.Env, envList(opts.Env)...)

	handles, err := m.opener.Open(spec, rows, cols)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordTerminalSpawnFailure(profile)
		}
		m.logger.Warn("Failed to spawn terminal",
			zap.String("session_id", id),
			zap.String("profile", profile),
			zap.String("shell", spec.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to spawn %q: %w", spec.Path, err)
	}

	sess := newSession(id, profile, spec, handles, rows, cols)
	if prev := m.registry.Insert(sess); prev != nil {
		m.supersede(prev)
	}
	sess.setRunning()

	go sess.reap()
	go m.pump(sess, handles.Reader)

	if m.metrics != nil {
		m.metrics.RecordTerminalSpawn(profile)
		m.metrics.SetTerminalsActive(m.registry.Len())
	}
	m.logger.Info("Terminal spawned",
		zap.String("session_id", id),
		zap.String("profile", profile),
		zap.String("shell", spec.String()),
		zap.Int("pid", handles.Process.Pid()),
		zap.Uint16("rows", rows),
		zap.Uint16("cols", cols),
	)

	info := sess.Info()
	return &info, nil
}

// Write forwards raw input bytes to the session's shell.
func (m *Manager) Write(id string, data []byte) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	n, err := sess.write(data)
	if m.metrics != nil {
		m.metrics.AddTerminalInput(n)
	}
	if err != nil {
		return fmt.Errorf("failed to write to session %s: %w", id, err)
	}
	return nil
}

// Resize applies a new geometry to the session's PTY.
func (m *Manager) Resize(id string, rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return ErrInvalidSize
	}
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := sess.resize(rows, cols); err != nil {
		return fmt.Errorf("failed to resize session %s: %w", id, err)
	}
	return nil
}

// Kill terminates a session. Subscribers receive an exit event once its
// output stream closes.
func (m *Manager) Kill(id string) error {
	sess, ok := m.registry.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if m.metrics != nil {
		m.metrics.SetTerminalsActive(m.registry.Len())
	}
	if err := sess.teardown(); err != nil {
		m.logger.Warn("Terminal teardown failed", zap.String("session_id", id), zap.Error(err))
	}
	m.logger.Info("Terminal killed", zap.String("session_id", id))
	return nil
}

// Get returns a snapshot of a registered session.
func (m *Manager) Get(id string) (*Info, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	info := sess.Info()
	return &info, nil
}

// List returns snapshots of all registered sessions.
func (m *Manager) List() []Info {
	sessions := m.registry.List()
	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}

// Subscribe attaches to the output stream of id.
func (m *Manager) Subscribe(id string) *Subscription {
	return m.hub.Subscribe(id)
}

// Close kills every session. Intended for shutdown.
func (m *Manager) Close() error {
	var errs []error
	for _, sess := range m.registry.Drain() {
		if err := sess.teardown(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	if m.metrics != nil {
		m.metrics.SetTerminalsActive(0)
	}
	return errors.Join(errs...)
}

func (m *Manager) lookup(id string) (*Session, error) {
	sess, ok := m.registry.Get(id)
	if !ok || sess.State() == StateEnded {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// supersede silences and tears down a session replaced by a respawn.
// Registry.Insert has already marked it; quiesce lets any fragment it was
// publishing land before the replacement starts producing output.
func (m *Manager) supersede(prev *Session) {
	prev.quiesce()
	if err := prev.teardown(); err != nil {
		m.logger.Debug("Superseded terminal teardown failed", zap.String("session_id", prev.ID), zap.Error(err))
	}
	m.logger.Info("Terminal replaced", zap.String("session_id", prev.ID))
}

// finish records the running → ended transition once the pump stops.
func (m *Manager) finish(s *Session) {
	if !s.markEnded() {
		return
	}
	m.registry.RemoveIf(s)
	if err := s.teardown(); err != nil {
		m.logger.Debug("Terminal teardown failed", zap.String("session_id", s.ID), zap.Error(err))
	}

	code := s.waitExit(exitWaitTimeout)

	if m.metrics != nil {
		m.metrics.RecordTerminalEnded()
		m.metrics.SetTerminalsActive(m.registry.Len())
	}

	fields := []zap.Field{zap.String("session_id", s.ID)}
	if code != nil {
		fields = append(fields, zap.Int("exit_code", *code))
	}
	m.logger.Info("Terminal ended", fields...)

	s.emit(func() {
		m.hub.Publish(Event{
			Type:      EventExit,
			SessionID: s.ID,
			ExitCode:  code,
		})
	})
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
