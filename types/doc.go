// Package types provides core types used across the ragcore module.
// This package has ZERO dependencies on other ragcore packages to avoid circular imports.
// All other packages should import types from here.
package types
