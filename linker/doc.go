// Package linker binds capability hosts into a wazero runtime.
//
// A Host is any value with a Namespace method. Its other exported methods
// become guest-importable functions named in kebab-case
// (CreateSurface -> create-surface). Every function must be declared in the
// capability Manifest with a WIT signature; a host that does not match its
// manifest is rejected at registration, before any guest is loaded.
//
//	l := linker.New(capability.Manifest(), linker.DefaultOptions())
//	if err := l.Register(capability.NewSurfaceHost(state)); err != nil {
//		return err // configuration error
//	}
//	if err := l.Instantiate(ctx, rt, compiled); err != nil {
//		return err // instantiation error listing ungranted imports
//	}
//
// # Import Resolution
//
// A guest import module name resolves to a registered namespace by exact
// match first. With SemverMatching enabled, "ns@X.Y.Z" also resolves to an
// unversioned "ns" or to a registered "ns@X.Y'.Z'" that is semver compatible.
// Host modules are instantiated under the name the guest imports.
package linker
