package platform

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable exposes info to descriptor code as the read-only
// global "platform". Call it before running the descriptor chunk.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	if info == nil {
		return errors.New("inject platform table: no platform info")
	}

	t := L.NewTable()
	for key, value := range map[string]string{
		"os":       info.OS,
		"arch":     info.Arch,
		"arch_raw": info.ArchRaw,
		"libc":     info.Libc,
		"distro":   info.Distro,
	} {
		L.SetField(t, key, lua.LString(value))
	}
	for key, value := range map[string]bool{
		"is_linux":         info.IsLinux(),
		"is_macos":         info.IsMacOS(),
		"is_windows":       info.IsWindows(),
		"is_amd64":         info.IsAMD64(),
		"is_arm64":         info.IsARM64(),
		"is_apple_silicon": info.IsAppleSilicon(),
		"is_musl":          info.IsMusl(),
	} {
		L.SetField(t, key, lua.LBool(value))
	}

	// Left nil for platforms without a release triple.
	if target, err := info.Target(); err == nil {
		L.SetField(t, "target", lua.LString(target))
	}

	// when(cond, value) yields value if cond holds, nil otherwise.
	L.SetField(t, "when", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", readOnly(L, t))
	return nil
}

// readOnly wraps table in an empty proxy whose metatable forwards reads and
// rejects writes.
func readOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
