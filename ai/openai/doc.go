// Package openai provides an ai.Completer backed by OpenAI-compatible
// chat APIs (OpenAI, Ollama, LocalAI, vLLM).
package openai
