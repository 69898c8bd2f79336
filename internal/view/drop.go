package view

import (
	"fmt"

	"github.com/nikbrunner/cm/internal/model"
)

// IntentKind is the mutation a drop resolves to.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentMoveBookmark
	IntentMoveFolder
	IntentReorder
)

func (k IntentKind) String() string {
	switch k {
	case IntentMoveBookmark:
		return "moveBookmark"
	case IntentMoveFolder:
		return "moveFolder"
	case IntentReorder:
		return "reorder"
	}
	return "none"
}

// Intent is a store mutation computed from a drop gesture.
type Intent struct {
	Kind      IntentKind
	SourceID  string
	TargetID  string             // IntentReorder
	Container *string            // IntentMoveBookmark, IntentMoveFolder; nil = root
	Position  model.DropPosition // IntentReorder
}

func (in Intent) String() string {
	container := "root"
	if in.Container != nil {
		container = *in.Container
	}
	switch in.Kind {
	case IntentMoveBookmark:
		return fmt.Sprintf("move bookmark %s to %s", in.SourceID, container)
	case IntentMoveFolder:
		return fmt.Sprintf("move folder %s to %s", in.SourceID, container)
	case IntentReorder:
		return fmt.Sprintf("place %s %s %s", in.SourceID, in.Position, in.TargetID)
	}
	return "nothing to do"
}

// Mutator is the write side of the store used to apply intents.
type Mutator interface {
	MoveBookmark(id string, target *string) error
	MoveFolder(id string, target *string) error
	ReorderByDragDrop(sourceID, targetID string, pos model.DropPosition) error
}

// ResolveDrop decides what dropping source onto target means:
//
//   - no target (empty area): move source to root
//   - target shares source's container: place source right before target
//   - otherwise: move source into the target folder, or into the folder
//     holding the target bookmark
//
// Items are re-read from the store, so stale copies resolve against the
// current hierarchy. Unknown items resolve to IntentNone. Cycles are not
// checked here; the store refuses them when the intent is applied.
func (p *Projection) ResolveDrop(source Item, target *Item) Intent {
	src, ok := p.Lookup(source.ID())
	if !ok {
		return Intent{}
	}

	if target == nil {
		return moveIntent(src, nil)
	}

	tgt, ok := p.Lookup(target.ID())
	if !ok {
		return Intent{}
	}

	if ptrEqual(src.Container(), tgt.Container()) {
		return Intent{
			Kind:     IntentReorder,
			SourceID: src.ID(),
			TargetID: tgt.ID(),
			Position: model.DropBefore,
		}
	}

	if tgt.IsFolder() {
		id := tgt.ID()
		return moveIntent(src, &id)
	}
	return moveIntent(src, tgt.Container())
}

func moveIntent(src Item, container *string) Intent {
	kind := IntentMoveBookmark
	if src.IsFolder() {
		kind = IntentMoveFolder
	}
	return Intent{Kind: kind, SourceID: src.ID(), Container: container}
}

// Apply executes an intent against the store.
func Apply(m Mutator, in Intent) error {
	switch in.Kind {
	case IntentMoveBookmark:
		return m.MoveBookmark(in.SourceID, in.Container)
	case IntentMoveFolder:
		return m.MoveFolder(in.SourceID, in.Container)
	case IntentReorder:
		return m.ReorderByDragDrop(in.SourceID, in.TargetID, in.Position)
	}
	return nil
}

// Drop resolves and applies a drop in one step.
func (p *Projection) Drop(m Mutator, source Item, target *Item) (Intent, error) {
	in := p.ResolveDrop(source, target)
	return in, Apply(m, in)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
