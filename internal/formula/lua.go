package formula

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kyrylokulyhin/pour/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// ParseError represents a descriptor parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua or YAML error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseLua evaluates a Lua descriptor and returns its fields. info is
// exposed to the code as the read-only "platform" table; it may be nil.
func ParseLua(ctx context.Context, code string, info *platform.Info) (Fields, error) {
	if len(code) > MaxDescriptorSize {
		return Fields{}, &ParseError{
			Message: "descriptor too large",
			Detail:  fmt.Sprintf("%d bytes exceeds limit of %d", len(code), MaxDescriptorSize),
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if info != nil {
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return Fields{}, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(code); err != nil {
		if ctx.Err() != nil {
			return Fields{}, fmt.Errorf("evaluate descriptor: %w", ctx.Err())
		}
		return Fields{}, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractFields(L)
}

// extractFields reads the global "formula" table.
func extractFields(L *lua.LState) (Fields, error) {
	global := L.GetGlobal(luaGlobalFormula)
	table, ok := global.(*lua.LTable)
	if !ok {
		return Fields{}, &ParseError{
			Message: "missing or invalid 'formula' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	var f Fields
	var err error

	strField := func(name string) string {
		if err != nil {
			return ""
		}
		var s string
		s, err = getString(table, name)
		return s
	}

	f.Name = strField(luaFieldName)
	f.Description = strField(luaFieldDesc)
	if f.Description == "" {
		f.Description = strField(luaFieldDescShort)
	}
	f.Homepage = strField(luaFieldHomepage)
	f.URL = strField(luaFieldURL)
	f.SourceURL = strField(luaFieldSourceURL)
	f.SHA256 = strField(luaFieldSHA256)
	f.IntegrityDigest = strField(luaFieldDigest)
	f.Version = strField(luaFieldVersion)
	f.Bin = strField(luaFieldBin)
	if err != nil {
		return Fields{}, err
	}

	if f.Test, err = extractTest(table.RawGetString(luaFieldTest)); err != nil {
		return Fields{}, err
	}

	if sigVal, ok := table.RawGetString(luaFieldSignature).(*lua.LTable); ok {
		sig := &SignatureSpec{}
		if sig.URL, err = getString(sigVal, luaFieldURL); err != nil {
			return Fields{}, err
		}
		if sig.Keyring, err = getString(sigVal, luaFieldKeyring); err != nil {
			return Fields{}, err
		}
		f.Signature = sig
	}

	if csVal, ok := table.RawGetString(luaFieldCosign).(*lua.LTable); ok {
		cs := &CosignSpec{}
		for field, dst := range map[string]*string{
			luaFieldBundleURL:   &cs.BundleURL,
			luaFieldTrustedRoot: &cs.TrustedRoot,
			luaFieldIdentity:    &cs.Identity,
			luaFieldIssuer:      &cs.Issuer,
		} {
			if *dst, err = getString(csVal, field); err != nil {
				return Fields{}, err
			}
		}
		f.Cosign = cs
	}

	return f, nil
}

// extractTest accepts either a string (single argument) or a table with an
// "args" array.
func extractTest(v lua.LValue) (TestSpec, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return TestSpec{}, nil
	case lua.LString:
		return TestSpec{Args: []string{string(val)}}, nil
	case *lua.LTable:
		argsVal, ok := val.RawGetString(luaFieldArgs).(*lua.LTable)
		if !ok {
			return TestSpec{}, nil
		}
		var args []string
		var bad lua.LValue
		argsVal.ForEach(func(_, value lua.LValue) {
			if s, ok := value.(lua.LString); ok {
				args = append(args, string(s))
			} else if bad == nil {
				bad = value
			}
		})
		if bad != nil {
			return TestSpec{}, &ParseError{
				Message: "invalid 'test.args'",
				Detail:  fmt.Sprintf("expected strings, got %s", bad.Type()),
			}
		}
		return TestSpec{Args: args}, nil
	default:
		return TestSpec{}, &ParseError{
			Message: "invalid 'test'",
			Detail:  fmt.Sprintf("expected table or string, got %s", v.Type()),
		}
	}
}

// getString returns a string field, "" when absent, and an error for any
// other type. Platform conditionals that evaluate to nil count as absent.
func getString(table *lua.LTable, name string) (string, error) {
	switch v := table.RawGetString(name).(type) {
	case *lua.LNilType:
		return "", nil
	case lua.LString:
		return string(v), nil
	default:
		return "", &ParseError{
			Message: fmt.Sprintf("invalid '%s'", name),
			Detail:  fmt.Sprintf("expected string, got %s", v.Type()),
		}
	}
}

// FormatError formats err for display. Unless verbose is set, the Lua stack
// traceback of a wrapped ParseError is dropped.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if verbose || !errors.As(err, &parseErr) {
		return err.Error()
	}
	msg := err.Error()
	if idx := strings.Index(msg, "stack traceback"); idx > 0 {
		msg = strings.TrimSpace(msg[:idx])
	}
	return msg
}
