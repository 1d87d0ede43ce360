// Package dnd holds the pure logic behind drag-and-drop: the drag gesture
// itself, sibling reordering and re-parent validation.
package dnd

import (
	"errors"
	"fmt"
	"strings"

	"lyra-cli/internal/model"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseDropped
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseDropped:
		return "dropped"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Drag tracks one gesture: Idle -> Dragging(active) -> Dropped(over) or
// Cancelled. The zero value is idle.
type Drag struct {
	phase    Phase
	activeID string
	overID   string
}

// Start picks up activeID. Starting while another drag is in progress
// replaces it.
func (d *Drag) Start(activeID string) error {
	activeID = strings.TrimSpace(activeID)
	if activeID == "" {
		return errors.New("drag: missing active id")
	}
	d.phase = PhaseDragging
	d.activeID = activeID
	d.overID = ""
	return nil
}

// Over records the current hover target while dragging.
func (d *Drag) Over(id string) {
	if d.phase == PhaseDragging {
		d.overID = strings.TrimSpace(id)
	}
}

// Drop ends the gesture on overID. Dropping on nothing or on the dragged
// element itself cancels.
func (d *Drag) Drop(overID string) Phase {
	if d.phase != PhaseDragging {
		return d.phase
	}
	overID = strings.TrimSpace(overID)
	d.overID = overID
	if overID == "" || overID == d.activeID {
		d.phase = PhaseCancelled
		return d.phase
	}
	d.phase = PhaseDropped
	return d.phase
}

func (d *Drag) Cancel() {
	if d.phase == PhaseDragging {
		d.phase = PhaseCancelled
	}
}

func (d *Drag) Reset() { *d = Drag{} }

func (d Drag) Phase() Phase      { return d.phase }
func (d Drag) ActiveID() string  { return d.activeID }
func (d Drag) OverID() string    { return d.overID }
func (d Drag) Dragging() bool    { return d.phase == PhaseDragging }

// Move returns a copy of ids with the element at from removed and reinserted
// at to. Out-of-range indexes return an unchanged copy.
func Move(ids []string, from, to int) []string {
	out := append([]string(nil), ids...)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	v := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{v}, out[to:]...)...)
	return out
}

// Reorder moves activeID to the position of overID. changed is false when the
// resulting sequence equals the input, in which case nothing should be sent.
func Reorder(ids []string, activeID, overID string) ([]string, bool) {
	from, to := indexOf(ids, activeID), indexOf(ids, overID)
	if from < 0 || to < 0 || from == to {
		return append([]string(nil), ids...), false
	}
	out := Move(ids, from, to)
	return out, !equal(ids, out)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Descendants returns the ids below rootID, breadth first, using only the
// items passed in. rootID itself is not included.
func Descendants(items []model.Item, rootID string) []string {
	children := map[string][]string{}
	for _, it := range items {
		if it.ParentID != nil {
			children[*it.ParentID] = append(children[*it.ParentID], it.ID)
		}
	}
	out := []string{}
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, ch := range children[id] {
			if seen[ch] {
				continue
			}
			seen[ch] = true
			out = append(out, ch)
			queue = append(queue, ch)
		}
	}
	return out
}

type RejectReason string

const (
	RejectSelf      RejectReason = "cannot move an item into itself"
	RejectCycle     RejectReason = "cannot move a folder into its own subfolder"
	RejectNotFolder RejectReason = "target is not a folder"
	RejectUnknown   RejectReason = "unknown item"
)

// MoveRejectedError is returned before any request is made.
type MoveRejectedError struct {
	ItemID   string
	TargetID string
	Reason   RejectReason
}

func (e *MoveRejectedError) Error() string {
	return fmt.Sprintf("move rejected: %s", e.Reason)
}

// CheckReparent validates moving itemID under targetID (nil = root) against
// the loaded items.
func CheckReparent(items []model.Item, itemID string, targetID *string) error {
	if findItem(items, itemID) == nil {
		return &MoveRejectedError{ItemID: itemID, TargetID: model.StrVal(targetID), Reason: RejectUnknown}
	}
	if targetID == nil {
		return nil
	}
	target := *targetID
	reject := func(r RejectReason) error {
		return &MoveRejectedError{ItemID: itemID, TargetID: target, Reason: r}
	}
	if target == itemID {
		return reject(RejectSelf)
	}
	for _, id := range Descendants(items, itemID) {
		if id == target {
			return reject(RejectCycle)
		}
	}
	t := findItem(items, target)
	if t == nil {
		return reject(RejectUnknown)
	}
	if !t.IsFolder() {
		return reject(RejectNotFolder)
	}
	return nil
}

func findItem(items []model.Item, id string) *model.Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
