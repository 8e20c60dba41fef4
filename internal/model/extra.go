package model

// ExtraData carries custom fields attached to an entity by the backend or
// by the application. Keys unknown to this SDK are preserved as-is.
type ExtraData map[string]any

// Merge combines incoming server data into the receiver's copy.
// Server-provided fields win over local custom fields; local keys absent
// from the incoming map are kept, never silently dropped.
func (e ExtraData) Merge(server ExtraData) ExtraData {
	if len(e) == 0 && len(server) == 0 {
		return nil
	}
	out := make(ExtraData, len(e)+len(server))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range server {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the map.
func (e ExtraData) Clone() ExtraData {
	if e == nil {
		return nil
	}
	out := make(ExtraData, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
