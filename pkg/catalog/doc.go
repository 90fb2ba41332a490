// Package catalog serves profiles and context window types from a local
// directory, as an alternative to the upstream configuration endpoints.
//
// # Layout
//
// A catalog directory holds one profiles.yaml and one YAML file per window
// type, named after the type's id:
//
//	catalog/
//	  profiles.yaml     # profiles: [{id, name, is_default, context_window_type_id, ...}]
//	  default.yaml      # window type "default"
//	  research.yml      # window type "research"
//
// Hidden files and files with other extensions are ignored.
//
// # Reloading
//
// Reload re-reads the whole directory and swaps the contents atomically. A
// reload that fails to parse leaves the previous contents in place. Watch
// drives Reload from filesystem events, debounced so an editor's burst of
// writes produces one reload.
package catalog
