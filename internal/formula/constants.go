package formula

import "time"

// Lua schema field names and globals
const (
	luaGlobalFormula     = "formula"
	luaFieldName         = "name"
	luaFieldDesc         = "description"
	luaFieldDescShort    = "desc"
	luaFieldHomepage     = "homepage"
	luaFieldURL          = "url"
	luaFieldSourceURL    = "source_url"
	luaFieldSHA256       = "sha256"
	luaFieldDigest       = "integrity_digest"
	luaFieldVersion      = "version"
	luaFieldBin          = "bin"
	luaFieldTest         = "test"
	luaFieldArgs         = "args"
	luaFieldSignature    = "signature"
	luaFieldKeyring      = "keyring"
	luaFieldCosign       = "cosign"
	luaFieldBundleURL    = "bundle_url"
	luaFieldTrustedRoot  = "trusted_root"
	luaFieldIdentity     = "identity"
	luaFieldIssuer       = "issuer"
	defaultSmokeTestFlag = "--version"
)

const (
	// MaxDescriptorSize bounds the size of a descriptor file.
	MaxDescriptorSize = 1 << 20
	// DefaultParseTimeout applies when the caller's context has no deadline.
	DefaultParseTimeout = 5 * time.Second
)
