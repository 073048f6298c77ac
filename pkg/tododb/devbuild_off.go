//go:build !tododev

package tododb

const devBuild = false
