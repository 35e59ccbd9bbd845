package isolation

import (
	"fmt"
	"runtime/debug"
)

// LoadedModules lists path@version for the main module and every dependency
// linked into the running binary. Replaced modules report their replacement.
func LoadedModules() []string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return listModules(info)
}

func listModules(info *debug.BuildInfo) []string {
	modules := make([]string, 0, len(info.Deps)+1)
	modules = append(modules, moduleString(&info.Main))
	for _, dep := range info.Deps {
		if dep.Replace != nil {
			dep = dep.Replace
		}
		modules = append(modules, moduleString(dep))
	}
	return modules
}

func moduleString(m *debug.Module) string {
	if m.Version == "" {
		return m.Path
	}
	return m.Path + "@" + m.Version
}

// logModules writes the module listing at debug level.
func (f *Factory) logModules() {
	if f.Logger == nil {
		return
	}
	modules := LoadedModules()
	f.Logger.LogDebug(fmt.Sprintf("loaded modules (%d):", len(modules)))
	for _, m := range modules {
		f.Logger.LogDebug("  " + m)
	}
}
