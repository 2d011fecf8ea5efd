// Package plugin discovers, loads and activates extensions.
//
// An extension is a Lua script, optionally packaged in a directory with an
// extension.json manifest:
//
//	~/.config/exthost/extensions/todo.lua
//
//	~/.config/exthost/extensions/markdown-lint/
//	├── extension.json
//	└── init.lua
//
// The manifest names the extension, its entry point and its dependencies,
// and declares what it contributes:
//
//	{
//	  "name": "markdown-lint",
//	  "version": "1.0.0",
//	  "main": "init.lua",
//	  "dependencies": ["spelling"],
//	  "contributes": {
//	    "languages": [{"id": "markdown", "extensions": [".md", ".markdown"]}],
//	    "providers": [{"languages": ["markdown"], "kinds": ["diagnostics"]}]
//	  }
//	}
//
// Activating an extension registers its language associations and binds
// the provider functions its script defines (diagnostics, format,
// format_range, hover) to the language registry, then calls the script's
// activate function if it has one. Deactivating reverses both and calls
// deactivate.
//
// Extensions move through these states:
//
//	StateUnloaded -> Load() -> StateLoaded
//	StateLoaded -> Activate() -> StateActive
//	StateActive -> Deactivate() -> StateLoaded
//	StateLoaded -> Unload() -> StateUnloaded
package plugin
