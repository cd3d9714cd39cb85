// Package ai defines the oracle boundary: the generative-model completion
// service the pipeline treats as an untrusted external function.
//
// The Completer interface is a pure "ask model, get text" contract. Adapters
// never interpret the returned text; JSON parsing and schema validation
// belong to the orchestrator and validator. This keeps providers swappable
// and the defensive parsing in one place.
package ai
