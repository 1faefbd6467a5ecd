// Package assistant provides the top-level chat façade: per turn it builds
// the augmented generation request, calls the generation provider, and
// commits the exchange to the conversation memory.
package assistant
