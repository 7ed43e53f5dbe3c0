package pompeii

// Arena owns a group of handles and destroys them in reverse order of
// tracking.
type Arena struct {
	items []Destroyer
}

// Track adds d to the arena and returns it.
func (a *Arena) Track(d Destroyer) Destroyer {
	a.items = append(a.items, d)
	return d
}

func (a *Arena) Len() int {
	return len(a.items)
}

// Release destroys everything tracked, newest first, and empties the
// arena so it can be reused.
func (a *Arena) Release() {
	for t := len(a.items) - 1; t >= 0; t-- {
		a.items[t].Destroy()
		a.items[t] = nil
	}
	a.items = a.items[:0]
}

// DestroyFunc adapts a plain function to Destroyer.
type DestroyFunc func()

func (f DestroyFunc) Destroy() {
	f()
}
