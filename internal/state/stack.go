package state

import "github.com/justyntemme/tscat/internal/debug"

// Command is an undoable user operation. Undo and Redo must not block; they
// submit actions and finish in their callbacks.
type Command interface {
	Text() string
	Redo()
	Undo()
}

// Stack is a linear undo history. Commands below Index are applied.
type Stack struct {
	commands []Command
	index    int
	clean    int
	onClean  []func(clean bool)
}

func NewStack() *Stack { return &Stack{} }

// Push applies cmd and drops any commands that could have been redone.
func (s *Stack) Push(cmd Command) {
	wasClean := s.IsClean()
	s.commands = append(s.commands[:s.index], cmd)
	if s.clean > s.index {
		s.clean = -1
	}
	debug.Log(debug.UNDO, "Push %q at %d", cmd.Text(), s.index)
	cmd.Redo()
	s.index++
	s.cleanChanged(wasClean)
}

func (s *Stack) Undo() {
	if !s.CanUndo() {
		return
	}
	wasClean := s.IsClean()
	s.index--
	debug.Log(debug.UNDO, "Undo %q", s.commands[s.index].Text())
	s.commands[s.index].Undo()
	s.cleanChanged(wasClean)
}

func (s *Stack) Redo() {
	if !s.CanRedo() {
		return
	}
	wasClean := s.IsClean()
	debug.Log(debug.UNDO, "Redo %q", s.commands[s.index].Text())
	s.commands[s.index].Redo()
	s.index++
	s.cleanChanged(wasClean)
}

func (s *Stack) CanUndo() bool { return s.index > 0 }
func (s *Stack) CanRedo() bool { return s.index < len(s.commands) }
func (s *Stack) Index() int    { return s.index }
func (s *Stack) Count() int    { return len(s.commands) }

// UndoText is the caption of the command Undo would revert.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.commands[s.index-1].Text()
}

func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.commands[s.index].Text()
}

// SetClean marks the current index as saved.
func (s *Stack) SetClean() {
	wasClean := s.IsClean()
	s.clean = s.index
	s.cleanChanged(wasClean)
}

func (s *Stack) IsClean() bool { return s.clean == s.index }

// OnCleanChanged registers fn for transitions of IsClean.
func (s *Stack) OnCleanChanged(fn func(clean bool)) {
	s.onClean = append(s.onClean, fn)
}

func (s *Stack) cleanChanged(was bool) {
	now := s.IsClean()
	if now == was {
		return
	}
	for _, fn := range s.onClean {
		fn(now)
	}
}
