// Package migrate implements the schema migration engine for persisted
// documents. Every store declares a Table of versioned upgrade transforms;
// on load, all transforms newer than the document's stored version run in
// ascending order, exactly once each, producing a document at the current
// schema version.
//
// The engine never lets a broken document or a broken transform escalate:
// future versions, parse failures, transform errors and transform panics all
// come back as typed errors (SchemaTooNewError, MigrationError) and the
// caller substitutes its initial model. The contract towards the rest of the
// system is "always return a usable model".
package migrate
