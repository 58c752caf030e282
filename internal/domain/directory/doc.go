// Package directory contains the Directory bounded context.
// It models the identity records a source directory pushes to a James mail
// server: identities keyed by e-mail address, their aliases and the domain
// contacts that live next to them.
//
// Key concepts:
//   - ChangeDescriptor: one create, update or delete request coming from the source side
//   - Outcome: the result of a single write against the destination, folded into one boolean
//   - PivotMap: snapshot of the destination state keyed by e-mail address
//   - WritableService: port the synchronization engine calls into
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package directory
