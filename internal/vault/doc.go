// Package vault is the boundary glimpse exposes to its collaborators. It
// owns one capture queue and one derivative cache and keeps them consistent:
// every artifact that leaves the queue, whether evicted, cleared, deleted or
// removed behind the queue's back, has its derivatives invalidated.
//
// # Operations
//
//   - [Vault.Capture] grabs the screen into a view and returns the new artifact
//   - [Vault.ListQueue] returns a view's artifact paths, oldest first
//   - [Vault.GetDerivative] returns a full or thumbnail derivative of an artifact
//   - [Vault.DeleteArtifact] securely erases one artifact
//   - [Vault.ClearQueue] erases every artifact in a view
//   - [Vault.SetView] and [Vault.View] switch the active view
//   - [Vault.Reset] clears both views and empties the cache
//
// Lifecycle activity is published on an [event.Bus] and counted in
// [metrics.Metrics]; both are optional and created on demand.
package vault
