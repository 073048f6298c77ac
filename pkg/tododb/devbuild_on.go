//go:build tododev

package tododb

// devBuild is set by the tododev build tag. It selects ModeDevelopment and
// public statement arguments when Config leaves them unset.
const devBuild = true
