// Package sandbox implements the user-sandbox overlay data model of the
// zukunft core.
//
// Every entity has one shared "standard" row visible to all users, plus at
// most one override row per user. Reading merges the two into one effective
// record (the override wins field by field where it is set); writing
// decides whether a change may mutate the shared row directly or must fork
// a per-user override, and records every persisted field delta in the
// change log before the row mutation itself.
//
// The package also provides the named-entity list container shared by the
// closure engine and the service layer, and the triple specialization with
// its orientation normalization and generated names.
package sandbox
