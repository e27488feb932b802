// Package undo implements the user operations that can be undone. Every
// command submits driver actions and advances in their callbacks, so Redo
// and Undo return immediately.
package undo

import (
	"fmt"
	"log"
	"slices"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/driver"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/state"
)

// Env is what commands work against.
type Env struct {
	Driver *driver.Driver
	State  *state.AppState

	// Author and CatalogueName seed new catalogues.
	Author        string
	CatalogueName string
}

// Phase is the life cycle position of a command.
type Phase int

const (
	Constructed Phase = iota
	RedoPending
	Applied
	UndoPending
	Reverted
)

func (p Phase) String() string {
	switch p {
	case Constructed:
		return "constructed"
	case RedoPending:
		return "redo-pending"
	case Applied:
		return "applied"
	case UndoPending:
		return "undo-pending"
	case Reverted:
		return "reverted"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// step starts a transition and calls done once its last action completed.
type step func(done func())

// Command is an undoable operation built by one of the constructors in this
// package. Requests made while a transition is pending are queued and run in
// order.
type Command struct {
	env       *Env
	text      string
	selection state.Selection
	targets   []string
	phase     Phase
	err       error
	queued    []bool
	redo      step
	undo      step
}

func newCommand(env *Env, targets []string) *Command {
	sel := env.State.Selection()
	if targets == nil {
		targets = sel.Selected
	}
	return &Command{
		env:       env,
		selection: sel,
		targets:   slices.Clone(targets),
	}
}

func (c *Command) Text() string { return c.text }
func (c *Command) Phase() Phase { return c.phase }

// Err is the error of the last failed action of the latest transition.
func (c *Command) Err() error { return c.err }

// Targets are the uuids the command acts on, or the uuid it creates.
func (c *Command) Targets() []string { return slices.Clone(c.targets) }

// Selection is the snapshot taken when the command was built.
func (c *Command) Selection() state.Selection { return c.selection.Clone() }

func (c *Command) Redo() { c.request(true) }
func (c *Command) Undo() { c.request(false) }

func (c *Command) request(redo bool) {
	if c.phase == RedoPending || c.phase == UndoPending {
		debug.Log(debug.UNDO, "%q busy (%s), queueing", c.text, c.phase)
		c.queued = append(c.queued, redo)
		return
	}
	c.start(redo)
}

func (c *Command) start(redo bool) {
	c.err = nil
	if redo {
		c.phase = RedoPending
		c.redo(c.finish)
	} else {
		c.phase = UndoPending
		c.undo(c.finish)
	}
}

func (c *Command) finish() {
	if c.phase == RedoPending {
		c.phase = Applied
	} else {
		c.phase = Reverted
	}
	debug.Log(debug.UNDO, "%q %s", c.text, c.phase)
	if len(c.queued) > 0 {
		next := c.queued[0]
		c.queued = c.queued[1:]
		c.start(next)
	}
}

// submit sends a with then as its callback. A failed action is logged and
// does not run then; done is called so the command never hangs.
func (c *Command) submit(a driver.Action, done func(), then func()) {
	a.SetCallback(func(driver.Action) {
		if err := a.Err(); err != nil {
			log.Printf("Undo Error: %s: %s: %v", c.text, a, err)
			c.err = err
			done()
			return
		}
		then()
	})
	c.env.Driver.Submit(a)
}

// chain submits actions one after the other, each from the callback of the
// previous one, then calls then.
func (c *Command) chain(done func(), then func(), actions ...driver.Action) {
	if len(actions) == 0 {
		then()
		return
	}
	c.submit(actions[0], done, func() { c.chain(done, then, actions[1:]...) })
}

// restore puts back the selection snapshot, then calls done.
func (c *Command) restore(done func()) {
	c.env.State.Restore(c.selection)
	done()
}

func (c *Command) notify(action state.Update, kind entity.Kind, uuids []string) {
	if len(uuids) > 0 {
		c.env.State.Updated(action, kind, uuids)
	}
}

func (c *Command) name(uuid string) string {
	if e, ok := c.env.Driver.Lookup(uuid); ok {
		return e.DisplayName()
	}
	return uuid
}

func (c *Command) names(uuids []string) string {
	if len(uuids) == 1 {
		return c.name(uuids[0])
	}
	return fmt.Sprintf("%d entities", len(uuids))
}

// kindOf reports the kind of the cached entity, defaulting to the selection
// type.
func (c *Command) kindOf(uuids []string) entity.Kind {
	if len(uuids) > 0 {
		if e, ok := c.env.Driver.Lookup(uuids[0]); ok {
			return e.Kind()
		}
	}
	return c.selection.Type
}
