// Package websearch provides web search engine clients usable as
// rag.WebSearchEngine collaborators.
package websearch
