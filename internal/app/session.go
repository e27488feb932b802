package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/justyntemme/tscat/internal/config"
	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/model"
	"github.com/justyntemme/tscat/internal/state"
	"github.com/justyntemme/tscat/internal/store"
	"github.com/justyntemme/tscat/internal/undo"
)

var (
	ErrNoMatch   = errors.New("no catalogue matches")
	ErrAmbiguous = errors.New("catalogue name is ambiguous")
)

// Session is one open catalogue store with its driver, models and
// application state. The goroutine that opened it owns it; only the driver's
// Submit may be called from elsewhere.
type Session struct {
	cfg    config.Config
	store  *store.Store
	driver *driver.Driver
	state  *state.AppState
	env    *undo.Env
	model  *model.RootModel
}

// Open opens the configured store and starts the driver.
func Open(ctx context.Context, cfg config.Config) (*Session, error) {
	debug.Configure(cfg.Debug.Categories)

	s, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	d := driver.New(s)
	d.Start()

	st := state.New()
	sess := &Session{
		cfg:    cfg,
		store:  s,
		driver: d,
		state:  st,
		env: &undo.Env{
			Driver:        d,
			State:         st,
			Author:        cfg.Catalogue.DefaultAuthor,
			CatalogueName: cfg.Catalogue.DefaultName,
		},
	}
	debug.Log(debug.APP, "Session opened on %s", cfg.Store.Path)
	return sess, nil
}

func (s *Session) Driver() *driver.Driver { return s.driver }
func (s *Session) State() *state.AppState { return s.state }
func (s *Session) Env() *undo.Env         { return s.env }

// Model builds the root model on first use. The CLI never needs one.
func (s *Session) Model() *model.RootModel {
	if s.model == nil {
		s.model = model.NewRootModel(s.driver)
	}
	return s.model
}

// Configure applies settings that can change while the session is open.
func (s *Session) Configure(cfg config.Config) {
	s.cfg = cfg
	s.env.Author = cfg.Catalogue.DefaultAuthor
	s.env.CatalogueName = cfg.Catalogue.DefaultName
	debug.Configure(cfg.Debug.Categories)
}

// Catalogues lists the catalogues in or out of the trash.
func (s *Session) Catalogues(ctx context.Context, removed bool) ([]*entity.Catalogue, error) {
	a := &driver.GetCataloguesAction{Removed: removed}
	if err := s.driver.Do(ctx, a); err != nil {
		return nil, err
	}
	return a.Catalogues(), nil
}

// Catalogue fetches a catalogue with its events, assigned or matched by its
// predicate, in or out of the trash.
func (s *Session) Catalogue(ctx context.Context, uuid string, removed bool) (*entity.Catalogue, []entity.CatalogueEvent, error) {
	a := &driver.GetCatalogueAction{UUID: uuid, Removed: removed}
	if err := s.driver.Do(ctx, a); err != nil {
		return nil, nil, err
	}
	return a.Catalogue(), a.Events(), nil
}

// Resolve maps catalogue uuids or names to uuids, searching the trash too.
func (s *Session) Resolve(ctx context.Context, refs []string) ([]string, error) {
	var all []*entity.Catalogue
	for _, removed := range []bool{false, true} {
		cats, err := s.Catalogues(ctx, removed)
		if err != nil {
			return nil, err
		}
		all = append(all, cats...)
	}

	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		var matches []string
		for _, c := range all {
			if c.ID == ref {
				matches = []string{c.ID}
				break
			}
			if c.Name == ref {
				matches = append(matches, c.ID)
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %q", ErrNoMatch, ref)
		case 1:
			out = append(out, matches[0])
		default:
			return nil, fmt.Errorf("%w: %q names %d catalogues", ErrAmbiguous, ref, len(matches))
		}
	}
	return out, nil
}

// Run pushes c on the undo stack and dispatches completions on the calling
// goroutine until it has settled.
func (s *Session) Run(ctx context.Context, c *undo.Command) error {
	s.state.PushCommand(c)
	for c.Phase() == undo.RedoPending || c.Phase() == undo.UndoPending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.driver.Completions():
			s.driver.Dispatch()
		}
	}
	return c.Err()
}

// Import reads path and writes its catalogues and events into the store as
// one undoable command.
func (s *Session) Import(ctx context.Context, path string, format exchange.Format) (*exchange.Dict, error) {
	canon := &driver.CanonicalizeImportAction{Path: path, Format: format}
	if err := s.driver.Do(ctx, canon); err != nil {
		return nil, err
	}
	dict := canon.Dict()
	if err := s.Run(ctx, undo.Import(s.env, path, dict)); err != nil {
		return nil, err
	}
	debug.Log(debug.APP, "Imported %d catalogues, %d events from %s",
		len(dict.Catalogues), len(dict.Events), path)
	return dict, nil
}

// ImportAsync is Import for the window: the file is read on the worker and
// the import pushed from the completion. done runs on the owner goroutine.
func (s *Session) ImportAsync(path string, format exchange.Format, done func(err error)) {
	canon := &driver.CanonicalizeImportAction{Path: path, Format: format}
	canon.Callback = func(driver.Action) {
		if err := canon.Err(); err != nil {
			done(err)
			return
		}
		s.state.PushCommand(undo.Import(s.env, path, canon.Dict()))
		done(nil)
	}
	s.driver.Submit(canon)
}

// Export writes the catalogues to path. An empty format is taken from the
// file extension, falling back to the configured one.
func (s *Session) Export(ctx context.Context, path string, format exchange.Format, uuids []string) error {
	if format == "" {
		f, err := exchange.FormatFromPath(path)
		if err != nil {
			if f, err = exchange.ParseFormat(s.cfg.Export.Format); err != nil {
				return err
			}
		}
		format = f
	}
	return s.driver.Do(ctx, &driver.ExportAction{Path: path, Format: format, UUIDs: uuids})
}

func (s *Session) MoveToTrash(ctx context.Context, uuids []string) error {
	return s.Run(ctx, undo.MoveEntityToTrash(s.env, uuids))
}

func (s *Session) RestoreFromTrash(ctx context.Context, uuids []string) error {
	return s.Run(ctx, undo.RestoreEntityFromTrash(s.env, uuids))
}

func (s *Session) DeletePermanently(ctx context.Context, uuids []string) error {
	return s.Run(ctx, undo.DeletePermanently(s.env, uuids))
}

// Save flushes the store in the background. The undo stack is marked clean
// before done runs.
func (s *Session) Save(done func(err error)) {
	a := &driver.SaveAction{}
	a.Callback = func(driver.Action) {
		err := a.Err()
		if err == nil {
			s.state.Stack().SetClean()
		}
		if done != nil {
			done(err)
		}
	}
	s.driver.Submit(a)
}

// SaveSync is Save for the command line.
func (s *Session) SaveSync(ctx context.Context) error {
	if err := s.driver.Do(ctx, &driver.SaveAction{}); err != nil {
		return err
	}
	s.state.Stack().SetClean()
	return nil
}

// Close stops the driver, dropping queued actions after the configured
// timeout, and closes the store.
func (s *Session) Close() error {
	if s.model != nil {
		s.model.Close()
		s.model = nil
	}
	stopErr := s.driver.Stop(s.cfg.Driver.Timeout())
	closeErr := s.store.Close()
	debug.Log(debug.APP, "Session closed")
	return errors.Join(stopErr, closeErr)
}
