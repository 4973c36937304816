// Package config resolves runtime settings from layered sources. In increasing
// precedence: field defaults, YAML files (the first configured path wins among
// files), NAVIGATOR_* environment variables and explicit overrides. The merged
// tree backs a root Settings value and typed sub-settings mounted from a dotted,
// bracket-indexed path such as "datalake" or "a.[1].b".
//
// Resolved values are memoized by a caller-held Resolver, so tests can build
// their own and production code shares one for the process lifetime.
package config
