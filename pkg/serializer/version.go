package serializer

// DetectVersion classifies a wire value as V1 or V2 per spec.md §4.3:
// V2 iff it is a primitive/array/object lacking both "map" and "val",
// or an object with "val" plus other keys; V1 only if the object has
// exactly "map"+"val", or "val" as its only property.
func DetectVersion(wire any) int {
	obj, ok := wire.(map[string]any)
	if !ok {
		return 2
	}
	_, hasVal := obj["val"]
	if !hasVal {
		return 2
	}
	_, hasMap := obj["map"]
	otherCount := len(obj) - 1 // keys other than "val"
	if hasMap && otherCount == 1 {
		return 1
	}
	if otherCount == 0 {
		return 1
	}
	return 2
}

// Deserialize auto-detects the dialect and deserializes wire
// accordingly.
func (c *Codec) Deserialize(wire any) (any, error) {
	if DetectVersion(wire) == 1 {
		return c.DeserializeV1(wire)
	}
	return c.DeserializeV2(wire)
}
