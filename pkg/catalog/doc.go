// Package catalog loads capability and contract catalogs from YAML and hot
// reloads them into a registry.
//
// A catalog file overlays the built-in catalog: entries whose id matches a
// built-in entry replace it, others are added.
//
//	capabilities:
//	  - id: haiku
//	    title: Seventeen Syllable Jutsu
//	    category: wind
//	    template: "Write a haiku about {topic}"
//	contracts:
//	  - id: poet
//	    name: Poet
//	    model: qwen2.5:1.5b
//	    system: You are a poet.
//	    capabilities: [haiku, summarize]
//
// Invariants:
// - A catalog that fails to compile never replaces the current one.
// - Workers already summoned keep the capabilities they were bound to.
package catalog
