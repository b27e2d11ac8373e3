// Package globalctx implements a process-wide two-level
// provider -> key -> value registry. Providers register a parser
// function by name; ParseAll invokes every registered parser exactly
// once against the process's CLI arguments, after which reads
// (lock-protected) only ever touch the populated context map.
package globalctx

import "sync"

// Parser inspects the raw CLI arguments once at startup and returns the
// key/value pairs for its own provider namespace.
type Parser func(args []string) map[string]string

// Context is the process-wide registry. The zero value is unusable; use
// New.
type Context struct {
	mu       sync.RWMutex
	parsers  map[string]Parser
	contexts map[string]map[string]string
}

// New creates an empty Context.
func New() *Context {
	return &Context{
		parsers:  make(map[string]Parser),
		contexts: make(map[string]map[string]string),
	}
}

// RegisterProvider registers a parser under providerName. Registration
// order never matters: ParseAll runs every registered parser exactly
// once, independent of registration sequence.
func (c *Context) RegisterProvider(providerName string, parser Parser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parsers[providerName] = parser
}

// ParseAll runs every registered provider's parser against args, replacing
// any previously parsed context. Call once, early in main.
func (c *Context) ParseAll(args []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := make(map[string]map[string]string, len(c.parsers))
	for name, parser := range c.parsers {
		fresh[name] = parser(args)
	}
	c.contexts = fresh
}

// GetValue returns the value for (provider, key), or "" if either is
// absent.
func (c *Context) GetValue(provider, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ctx, ok := c.contexts[provider]; ok {
		return ctx[key]
	}
	return ""
}

// HasProvider reports whether a provider has been registered.
func (c *Context) HasProvider(provider string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.parsers[provider]
	return ok
}

// ProviderContext returns a copy of all key/value pairs for a provider.
func (c *Context) ProviderContext(provider string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.contexts[provider]))
	for k, v := range c.contexts[provider] {
		out[k] = v
	}
	return out
}

// Clear resets all providers and parsed context. Exposed for tests.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parsers = make(map[string]Parser)
	c.contexts = make(map[string]map[string]string)
}
