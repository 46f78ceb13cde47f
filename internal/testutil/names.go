package testutil

// FixedNames generates the same temp file suffix every time.
//
// Tests use it to predict the temp file a FileBackend will create, for
// example to plant a stale file at that path beforehand.
//
// Thread-safety: FixedNames is stateless and safe for concurrent use.
type FixedNames struct {
	name string
}

// NewFixedNames creates a fixed suffix generator. If name is empty,
// Generate returns "fixed".
func NewFixedNames(name string) *FixedNames {
	if name == "" {
		name = "fixed"
	}
	return &FixedNames{name: name}
}

// Generate returns the fixed suffix.
//
// Implements store.NameGenerator.
func (g *FixedNames) Generate() string {
	return g.name
}
