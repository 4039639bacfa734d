// Package resource provides the capability table of a guest session.
//
// Capabilities are host-side values (surfaces, graphics contexts, frame
// buffers, GPU objects) that a guest refers to by an opaque uint32 handle.
// Each session owns exactly one table; a handle from one table never resolves
// in another.
//
//	table := resource.New(sessionID, resource.WithLimit(4096))
//	h := table.Insert(resource.KindSurface, s)
//	s, ok := resource.Typed[*surface.Surface](table, h, resource.KindSurface)
//
// Handle 0 is always invalid. Freed slots are reused under a new generation,
// so a handle the guest kept after dropping it fails instead of aliasing the
// next capability. A borrowed handle cannot be removed until every borrow is
// returned. Values implementing Dropper are released on Remove and on Close.
//
// Observers receive Created, Dropped, Borrowed and BorrowReturned events
// tagged with the owning session.
package resource
