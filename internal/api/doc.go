// Package api serves the deploy endpoint: an authenticated POST on any path
// that starts a tenant deploy and answers before it runs.
package api
