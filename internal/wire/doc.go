// Package wire is the declarative binary codec engine.
//
// A Schema is an ordered list of named field definitions plus options. The
// same Schema drives Parse (bytes to Instance) and ToBytes (Instance to
// bytes). Fields may reference earlier values through Ref paths, exist only
// when a Predicate holds (When), select among variants by a discriminator
// (Switch), or pack sub-byte values into a fixed container (BitSchema).
//
// Ownership boundary:
//   - wire owns schema assembly, the parse and serialize loops, Ref
//     resolution, sync rules, validation, and expressions.
//   - wire does not own framing, transport, or schema versioning; the bytes
//     produced are exactly those implied by the schema.
//   - schema files and expression strings are compiled elsewhere
//     (internal/schemafile, internal/exprlang) into the types defined here.
//
// Schemas are immutable after Build and safe for concurrent use. Instances
// are not safe for concurrent mutation.
package wire
