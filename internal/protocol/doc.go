// Package protocol owns the heater frame codec.
//
// Ownership boundary:
// - decoding received frames into named values
// - encoding commands into outgoing frames
// - field-level reads/writes driven by the schema registry
//
// Sub-packages:
// - schema: parameter descriptors, enum dictionaries, command table
// - frame: fixed frame type, checksum, structural fixups
// - session: connection and transfer state machine
package protocol
