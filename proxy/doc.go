// Package proxy implements the remote side of the bridge: stand-in
// values whose structural operations round-trip to the owning goroutine.
//
// A Bridge owns the client half of one channel. Every operation on a
// Proxy acquires the channel lock, sends a reflect-call control message,
// blocks until the owner publishes a response frame, decodes it, and
// releases the lock. Object-reference results synthesize fresh nested
// proxies, so navigating a remote object graph never copies it.
//
// From the calling goroutine's point of view an intercepted operation is
// an ordinary blocking call. One channel carries one outstanding request
// at a time; proxies sharing a bridge are safe to use from multiple
// goroutines because the channel lock serializes their round trips.
package proxy
