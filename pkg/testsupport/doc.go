// Package testsupport holds fixtures shared by the package tests: the built-in
// form registry, known-good records, a fixed clock and golden-file helpers.
package testsupport
