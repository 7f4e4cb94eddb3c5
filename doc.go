// Package snapzy implements the Snapzy account registration and login
// workflow: email OTP issuance and verification, registration completion,
// and credential login with bearer-token issuance.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// snapzy is the public surface. It exposes [Engine], [Builder], [Config], the
// [AccountStore] and [Notifier] capability interfaces, and value types
// (Account, LoginResult, MetricsSnapshot). Store and mail implementations
// live under store/ and mailer/ and are injected at construction time; the
// engine itself never opens a database connection or an SMTP session.
//
// # What this package must NOT do
//
//   - Expose OTP codes or password hashes in any public projection.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Retry failed notification deliveries — failures are surfaced to the
//     caller (OTP mail) or routed to the audit sink (welcome mail), never
//     replayed.
package snapzy
