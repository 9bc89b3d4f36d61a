package types

// Version is the canonical project version.
// The CLI, client and server share this version; the wire signature only
// changes when the frame layout does.
const Version = "0.3.0"
