// Package provider resolves which LLM backend to talk to from configuration
// and dispatches completion requests to it (OpenAI, Anthropic).
//
// Callers depend only on Completer: hand it the conversation and a system
// instruction, get back the generated text or one typed error.
package provider
