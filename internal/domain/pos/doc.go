// Package pos contains the point-of-sale integration bounded context.
// It describes the restaurant data mirrored from an R-Keeper POS and the
// ports used to talk to it.
//
// Key concepts:
//   - Station: a POS sales point addressed by a numeric code in protocol calls
//   - Category / MenuItem: the local mirror of a station's order menu
//   - Order / OrderItem: customer orders pushed to the POS
//   - Gateway: port for the POS XML interface
//   - LicenseSequenceStore: shared keyed counter for licensed write calls
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package pos
