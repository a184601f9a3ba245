// Package backend is the inference boundary: one interface over Ollama,
// OpenAI-compatible and Anthropic APIs.
//
// Usage:
//
//	b, err := (&backend.Factory{}).New(backend.Config{Provider: "ollama", URL: "http://localhost:11434"})
//	resp, err := b.Generate(ctx, backend.Request{Model: "qwen2.5:1.5b", System: sys, Prompt: prompt})
package backend
