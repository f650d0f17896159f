//go:build jsonmigration_nocodegen

package dispatch

var codegenBackend = false
