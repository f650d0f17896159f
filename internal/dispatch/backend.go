//go:build !jsonmigration_nocodegen

package dispatch

// codegenBackend reports whether the override synthesizer is linked in.
var codegenBackend = true
