package tilestore

// CanCross reports whether movement is permitted from a tile with walk
// data `from` to an adjacent tile with walk data `to`, stepping in
// direction dir. This is the directional crossing test used by both
// entrance discovery and the inter-cluster edge builder.
func CanCross(dir Direction, from, to WalkData) bool {
	switch dir {
	case North:
		return from.Bottom && to.Top
	case South:
		return from.Top && to.Bottom
	case East:
		return from.Right && to.Left
	case West:
		return from.Left && to.Right
	default:
		return false
	}
}
