/*
Package pof implements the Portable Object Format, a compact,
self-describing binary encoding with tagged values, packed integers,
uniform containers, user types with per-type versions, and object
identities.

Streams can be consumed at three levels. A Parser reports a stream as
events to a Handler; WritingHandler is the Handler that encodes, and
ValidatingHandler checks a sequence of events against the format rules.
BufferReader and BufferWriter read and write user types property by
property, resolving types through a Context. Encoder and Decoder wrap
them for whole values.

Types implementing Evolvable keep the properties written by newer
versions of themselves, so a value passed through older code is written
back unchanged. PofDeltaCompressor and BinaryDeltaCompressor compute
compact differences between two encoded values.
*/
package pof
