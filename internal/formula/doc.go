// Package formula loads and validates package descriptors: the name,
// version, source URL and SHA-256 digest of a prebuilt release archive,
// plus the archive entry to install and the arguments of its smoke test.
//
// # Formats
//
// Descriptors are written in Lua or in YAML/JSON. A Lua descriptor defines
// a global "formula" table and runs in a sandboxed gopher-lua VM with a
// read-only "platform" table, so per-platform values can be chosen inline:
//
//	formula = {
//	  name        = "ecs-exec",
//	  description = "CLI tool to execute commands in an AWS ECS container",
//	  homepage    = "https://github.com/kyrylokulyhin/ecs-exec",
//	  version     = "v0.1.0",
//	  url         = "https://github.com/kyrylokulyhin/ecs-exec/releases/download/{version}/ecs-exec-{target}.zip",
//	  sha256      = platform.is_arm64 and "<arm64 digest>" or "<amd64 digest>",
//	  test        = { args = { "--version" } },
//	}
//
// YAML and JSON descriptors carry the same fields and are checked against
// an embedded JSON Schema before they are decoded.
//
// # Immutability
//
// A Descriptor can only be built through New, which validates every field.
// It has no setters and its accessors return copies, so a loaded
// descriptor cannot change while an install is running. Resolve turns it
// into a Resolved value with concrete URLs for one target.
//
// # URL templates
//
// The source URL and the optional signature and bundle URLs may contain
// {name}, {version}, {target}, {os} and {arch}.
package formula
