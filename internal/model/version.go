package model

// Version constants for the persisted layout and the engine.
const (
	// SchemaVersion is the version of the record layout in this package.
	SchemaVersion = "1"

	// EngineVersion is the courtside engine version.
	EngineVersion = "0.1.0"
)
