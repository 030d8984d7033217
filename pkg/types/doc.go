// Package types defines the Store and Table interfaces, the Record and
// Schema data model, statement notification types, and the standard errors
// of the lookup store.
//
// The lookup contract has three entry points. Find resolves identifiers and
// fails with ErrNotFound when a record is missing. FindBy returns the first
// match for a condition or nil. FindSoleBy insists on exactly one match and
// distinguishes ErrNotFound from ErrTooManyResults. Calling FindBy or
// FindSoleBy with no argument at all is ErrInvalidArgument, which is not the
// same as calling them with an explicitly empty condition.
package types
