package render

// Slot is one keyed position in the list. Key is the item's index.
type Slot[T any] struct {
	Key      int  `json:"key"`
	Item     T    `json:"item"`
	Entering bool `json:"entering,omitempty"`
}

// Layout returns one slot per item in order. With animateLast set, exactly
// the last slot is marked as entering.
func Layout[T any](items []T, animateLast bool) []Slot[T] {
	out := make([]Slot[T], len(items))
	for i, it := range items {
		out[i] = Slot[T]{Key: i, Item: it}
	}
	if animateLast && len(out) > 0 {
		out[len(out)-1].Entering = true
	}
	return out
}
