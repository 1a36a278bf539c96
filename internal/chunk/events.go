package chunk

// Events emitted on the bus by the registry. Subscribers see them one tick
// later, on the main goroutine.

type PoppedIn struct {
	Index     Index
	Triangles int
	Trees     int
	HasWater  bool
}

type PoppedOut struct {
	Index Index
}

type Streamed struct {
	Index    Index
	BuildMs  float64
	HasWater bool
}

type Failed struct {
	Index    Index
	Failures int
}

type Nuked struct {
	Index Index
}

// Outdated is emitted for a visible chunk whose surroundings gained newly
// discovered tiles after it was built.
type Outdated struct {
	Index Index
}
