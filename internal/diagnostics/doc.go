// Package diagnostics gathers the host and runtime facts that go into crash
// reports and maps the runtime vendor to a remediation recommendation.
//
// Every probe is best effort. A probe that fails leaves its fields at their
// "unknown" values and never fails the whole collection.
package diagnostics
