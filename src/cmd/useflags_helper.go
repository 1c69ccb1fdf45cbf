package cmd

import (
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/useflags"
)

// globalUseMap parses a manifest's useFlags tokens into the polarity map
// the planner's exact_use_flags check and the installer's computeUse need.
func globalUseMap(man manifest.Manifest) (map[string]bool, error) {
	st, err := useflags.NewState(man.UseFlags)
	if err != nil {
		return nil, err
	}
	return map[string]bool(st), nil
}
