package planner

// Item is one file of a copy plan: a path relative to the tree roots joined
// with the source root and every destination root.
type Item struct {
	RelPath      string
	Source       string
	Destinations []string
	Size         int64
}
