// Package surface holds the native drawing target handed into a guest.
//
// A Surface is created on the UI goroutine for an embedder-owned Window and
// then moves into the guest session through a Slot, a single-item exchange
// that is filled exactly once before the guest asks for it:
//
//	s, _ := surface.New(win, surface.DefaultOptions())
//	proxy := s.Proxy()
//	_ = slot.Deposit(s)
//	// ... guest goroutine ...
//	s, err := slot.Take()
//
// The host keeps only the Proxy. It wakes the guest with TickFrame and feeds
// input with ForwardEvent; both report a ChannelClosed error once the surface
// is gone, which callers treat as a no-op.
package surface
