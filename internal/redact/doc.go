// Package redact removes sensitive content from failure context before it is
// hashed, sent to an AI provider, cached, or rendered.
//
// Detection is an ordered list of rules, most specific first: private key
// blocks, authorization headers, bearer tokens, credential assignments,
// vendor token shapes, connection-string credentials, URLs, email addresses,
// absolute filesystem paths and finally long high-entropy tokens. Each match
// is replaced by a typed placeholder so reviewers can still tell what kind of
// value was removed.
//
// Redaction is total and idempotent: running it over its own output changes
// nothing. Only per-category counts are reported; matched values are never
// logged or returned.
package redact
