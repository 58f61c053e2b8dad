package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
	"github.com/nerrad567/saphari-core/internal/layout"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// active is a dashboard held in memory.
type active struct {
	engine    *layout.Engine
	widgets   []widget.Widget
	updatedAt time.Time
}

func (a *active) indexOf(id string) int {
	for i, w := range a.widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (a *active) snapshot() Dashboard {
	doc := a.engine.Serialize()
	widgets := make([]widget.Widget, len(a.widgets))
	for i, w := range a.widgets {
		widgets[i] = w.Clone()
	}
	return Dashboard{
		ScopeKey:  doc.ScopeKey,
		Columns:   doc.Columns,
		Cells:     doc.Cells,
		Widgets:   widgets,
		UpdatedAt: a.updatedAt,
	}
}

// Service edits dashboards.
//
// Dashboards are loaded on first use and kept in memory. Every change is
// saved before the call returns; if saving fails the in-memory copy is
// dropped so the next call reloads the stored state.
//
// A scope with nothing stored reads as an empty dashboard. All methods are
// safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	repo   Repository
	cfg    config.LayoutConfig
	open   map[string]*active
	logger Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a Service. Zero values in cfg fall back to a 12
// column grid with 3x3 widgets.
func NewService(repo Repository, cfg config.LayoutConfig) *Service {
	if cfg.Columns < 1 {
		cfg.Columns = layout.DefaultColumns
	}
	if cfg.DefaultWidth < 1 {
		cfg.DefaultWidth = 3
	}
	if cfg.DefaultHeight < 1 {
		cfg.DefaultHeight = 3
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		open:   make(map[string]*active),
		logger: noopLogger{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Get returns the dashboard for scope.
func (s *Service) Get(ctx context.Context, scope string) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadLocked(ctx, scope)
	if err != nil {
		return Dashboard{}, err
	}
	return a.snapshot(), nil
}

// Scopes lists the scope keys that have a stored dashboard.
func (s *Service) Scopes(ctx context.Context) ([]string, error) {
	return s.repo.Scopes(ctx)
}

// Widget returns one widget and its cell.
func (s *Service) Widget(ctx context.Context, scope, widgetID string) (widget.Widget, layout.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadLocked(ctx, scope)
	if err != nil {
		return widget.Widget{}, layout.Cell{}, err
	}
	i := a.indexOf(widgetID)
	if i < 0 {
		return widget.Widget{}, layout.Cell{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	cell, _ := a.engine.Get(widgetID)
	return a.widgets[i].Clone(), cell, nil
}

// AddWidget adds w below the existing widgets at the default size. An empty
// w.ID is replaced with a generated one.
func (s *Service) AddWidget(ctx context.Context, scope string, w widget.Widget) (widget.Widget, layout.Cell, error) {
	if w.ID == "" {
		w.ID = s.newID()
	}
	if err := w.Validate(); err != nil {
		return widget.Widget{}, layout.Cell{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadLocked(ctx, scope)
	if err != nil {
		return widget.Widget{}, layout.Cell{}, err
	}
	if a.indexOf(w.ID) >= 0 {
		return widget.Widget{}, layout.Cell{}, fmt.Errorf("%w: %s", ErrWidgetExists, w.ID)
	}

	a.widgets = append(a.widgets, w.Clone())
	cell := a.engine.Append(w.ID, s.cfg.DefaultWidth, s.cfg.DefaultHeight)

	if err := s.saveLocked(ctx, scope, a); err != nil {
		return widget.Widget{}, layout.Cell{}, err
	}
	s.logger.Info("widget added", "scope", scope, "widget_id", w.ID, "type", string(w.Type))
	return w, cell, nil
}

// MoveWidget places the widget's cell, pushing overlapped cells down, and
// returns the cell as stored.
func (s *Service) MoveWidget(ctx context.Context, scope, widgetID string, x, y, w, h int) (layout.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadLocked(ctx, scope)
	if err != nil {
		return layout.Cell{}, err
	}
	if a.indexOf(widgetID) < 0 {
		return layout.Cell{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}

	cell := a.engine.Place(widgetID, x, y, w, h)
	if err := s.saveLocked(ctx, scope, a); err != nil {
		return layout.Cell{}, err
	}
	return cell, nil
}

// RemoveWidget deletes a widget and its cell. Other cells do not move.
func (s *Service) RemoveWidget(ctx context.Context, scope, widgetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadLocked(ctx, scope)
	if err != nil {
		return err
	}
	i := a.indexOf(widgetID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}

	a.widgets = append(a.widgets[:i], a.widgets[i+1:]...)
	a.engine.Remove(widgetID)

	if err := s.saveLocked(ctx, scope, a); err != nil {
		return err
	}
	s.logger.Info("widget removed", "scope", scope, "widget_id", widgetID)
	return nil
}

// Delete removes a stored dashboard.
// Returns ErrDashboardNotFound if nothing is stored for scope.
func (s *Service) Delete(ctx context.Context, scope string) error {
	if err := layout.ValidateScope(scope); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.open, scope)
	return s.repo.Delete(ctx, scope)
}

// loadLocked returns the in-memory dashboard for scope, reading it from the
// repository on first use.
func (s *Service) loadLocked(ctx context.Context, scope string) (*active, error) {
	if err := layout.ValidateScope(scope); err != nil {
		return nil, err
	}
	if a, ok := s.open[scope]; ok {
		return a, nil
	}

	d, err := s.repo.Get(ctx, scope)
	switch {
	case errors.Is(err, ErrDashboardNotFound):
		d = Dashboard{ScopeKey: scope, Columns: s.cfg.Columns}
	case err != nil:
		return nil, fmt.Errorf("loading dashboard %s: %w", scope, err)
	}

	a := &active{engine: layout.Deserialize(d.Layout()), updatedAt: d.UpdatedAt}
	for _, w := range d.Widgets {
		if a.indexOf(w.ID) >= 0 {
			s.logger.Warn("duplicate widget in stored dashboard", "scope", scope, "widget_id", w.ID)
			continue
		}
		a.widgets = append(a.widgets, w)
	}

	// Every widget needs a cell; stray cells without a widget are dropped.
	for _, w := range a.widgets {
		if _, ok := a.engine.Get(w.ID); !ok {
			a.engine.Append(w.ID, s.cfg.DefaultWidth, s.cfg.DefaultHeight)
		}
	}
	for _, c := range a.engine.Cells() {
		if a.indexOf(c.WidgetID) < 0 {
			a.engine.Remove(c.WidgetID)
		}
	}

	s.open[scope] = a
	return a, nil
}

func (s *Service) saveLocked(ctx context.Context, scope string, a *active) error {
	a.updatedAt = s.now()
	if err := s.repo.Save(ctx, a.snapshot()); err != nil {
		delete(s.open, scope)
		return fmt.Errorf("saving dashboard %s: %w", scope, err)
	}
	return nil
}
