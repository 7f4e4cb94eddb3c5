// Package internal contains helper utilities that are intentionally private
// to snapzy, including secure OTP generation.
//
// # Sub-packages
//
//   - guard — Redis-backed per-email OTP issuance lock
//
// # What this package must NOT do
//
//   - Export types that appear in the public snapzy API.
//   - Be imported by any package outside the snapzy module.
package internal
