// Package engine implements the style checking engine: ruleset loading, the
// built-in checks, suppression filtering, and the [Checker] that audits
// files.
//
// A ruleset is an XML document of nested modules:
//
//	<module name="Checker">
//	  <module name="LineLength">
//	    <property name="max" value="120"/>
//	  </module>
//	</module>
//
// [LoadConfig] parses a document into a [Config] tree, expanding ${name}
// property references, and [NewChecker] compiles the tree into a runnable
// [Checker].
package engine
