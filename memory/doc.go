// Package memory provides bounded conversation memory.
//
// WindowMemory keeps the most recent N turns of a single conversation in a
// sliding window, oldest evicted first. Each instance is owned by exactly
// one assistant and mutated sequentially per conversation.
package memory
