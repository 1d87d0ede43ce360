package browser

import "lyra-cli/internal/model"

// MoveCommand removes an item from a listing optimistically and remembers
// where it was so a failed move can be undone exactly.
type MoveCommand struct {
	Item  model.Item
	Index int
}

// Apply returns items without the command's item.
func (c MoveCommand) Apply(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.ID != c.Item.ID {
			out = append(out, it)
		}
	}
	return out
}

// Undo reinserts the original item at its original index.
func (c MoveCommand) Undo(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items)+1)
	for _, it := range items {
		if it.ID != c.Item.ID {
			out = append(out, it)
		}
	}
	i := c.Index
	if i < 0 {
		i = 0
	}
	if i > len(out) {
		i = len(out)
	}
	out = append(out, model.Item{})
	copy(out[i+1:], out[i:])
	out[i] = c.Item
	return out
}
