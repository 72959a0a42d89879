// Package surveyor extracts a machine-readable inventory of a codebase: the
// exported functions of TypeScript and JavaScript sources become tool
// descriptors, and the tables of SQL DDL files become resource descriptors.
//
// # Pipeline
//
// A run has two independent halves joined before assembly:
//
//  1. Source scan: each source file is parsed with tree-sitter, exported
//     function declarations, bound function expressions and public class
//     methods are filtered, classified and described.
//
//  2. Schema scan: each SQL file is parsed against an ordered list of
//     dialect profiles (mysql, postgresql, sqlite, mssql) and the first
//     dialect that accepts the file supplies its tables.
//
// Failures are isolated per file. A file that cannot be read or parsed is
// skipped with a [Warning]; the rest of the run is unaffected.
//
// # Usage
//
//	e, err := surveyor.New(surveyor.WithRoot("path/to/project"))
//	if err != nil { ... }
//
//	res, err := e.ScanDirectory(ctx)
//	for _, t := range res.Tools { ... }
//
// [Engine.Run] takes explicit file lists when discovery is done elsewhere.
//
// # Rules
//
// An optional Risor script can adjust the category and description of each
// tool after classification. See [WithRulesScript] and the internal/runtime
// package for the globals exposed to scripts.
package surveyor
