// Package patterns answers naming-pattern queries against resource names.
//
// Patterns are the vm_naming_patterns entries of the azure_resources
// document. A name matches a pattern when the pattern's regular expression
// matches at the start of the name; trailing characters are allowed unless
// the expression itself ends in "$". A pattern that is missing, has no regex
// or fails to compile never matches. Such problems are logged and reported
// to the Observer but never returned as errors, so one bad pattern definition
// cannot break a cleanup run for the others.
package patterns
