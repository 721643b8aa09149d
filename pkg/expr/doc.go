// Package expr provides CEL (Common Expression Language) functionality
// for evaluating expressions against source files and lines.
//
// It creates CEL environments with custom functions for file path
// operations (pathBase, pathDir, pathExt), plus the strings, lists, and
// math extension libraries. The variables available to an expression are
// declared by the caller when the environment is created.
package expr
