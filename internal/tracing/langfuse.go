// Package tracing wires the answering pipeline into Langfuse so every
// generation call is traced with its prompt, latency and token usage.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Setup builds the Langfuse callback handler from LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY and LANGFUSE_HOST. When either key is missing the
// third return value is false and tracing stays disabled; callers skip
// registration entirely. The returned flush function must run before
// process exit so buffered traces reach the Langfuse API.
func Setup() (callbacks.Handler, func(), bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
	})

	return handler, flush, true
}
