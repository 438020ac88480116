// Package types defines the entity record model, entity schemas, the
// CrudStore and Adapter contracts, configuration structs, and standard
// errors shared by every Railnode storage backend.
package types
