package slimtree

// Object is the abstract payload the tree indexes. Implementations must be
// byte-serializable to a size known in advance of serialization -- the tree
// uses SerializedSize to decide whether an object fits in a page before
// ever calling Serialize.
type Object interface {
	// SerializedSize returns the exact number of bytes Serialize will
	// produce for this object.
	SerializedSize() uint32

	// Serialize encodes the object into buf, which is exactly
	// SerializedSize() bytes long.
	Serialize(buf []byte)

	// Unserialize decodes the object from buf, which is exactly the
	// number of bytes originally written by Serialize.
	Unserialize(buf []byte) error

	// Clone returns a deep copy of the object.
	Clone() Object

	// Equals reports whether the object is value-equal to other.
	Equals(other Object) bool
}

// Identifiable is an optional capability: objects that carry a stable
// identifier distinct from their serialized content implement it so
// callers can correlate results back to external records.
type Identifiable interface {
	OID() uint64
}
