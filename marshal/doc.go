// Package marshal converts between Go values and the named parameters and
// result rows of a dialect.Driver.
//
// Records bind by property name: a field UserName binds to :userName unless
// its dal tag says otherwise. Result columns resolve against the same
// descriptors, falling back to transliteration (USER_NAME -> userName);
// columns that resolve to nothing are skipped, never fatal.
package marshal
