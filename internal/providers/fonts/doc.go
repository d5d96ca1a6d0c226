// Package fonts lists installed font families by scanning font folders.
//
// Family names come from file names only; font tables are not parsed.
package fonts
