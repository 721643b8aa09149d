// Package checker caches ready-to-run style checkers keyed by ruleset
// location.
//
// Building a checker is expensive: the ruleset is resolved, parsed,
// property-expanded, and compiled. The [Cache] keeps one validated
// [CachedChecker] per location, revalidates it on every lookup, and
// rebuilds expired entries on an isolated goroutine. During a build,
// suppression file paths referenced by the ruleset are rewritten against
// the workspace ([RewriteSuppressions]) so that paths written relative to
// the ruleset keep working wherever the checker runs.
package checker
