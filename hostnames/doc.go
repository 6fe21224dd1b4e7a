// Package hostnames discovers the names and addresses a server is reachable
// at, for use as Subject Alternative Names of its certificate.
package hostnames
