// Package receipt issues signed inclusion receipts. A receipt bundles a
// commit id, the root hash it was proven under, and the inclusion proof
// itself into an HS256-signed JWT that third parties can verify offline
// against a root hash they trust.
package receipt
