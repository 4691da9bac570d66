// Package protocol owns the message contract built on the engine schemas.
//
// Ownership boundary:
// - frame/ header, auth, and payload framing
// - tlv/ typed payload fields
// - message encode/decode and semantic validation entry points
package protocol
